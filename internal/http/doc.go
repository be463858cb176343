// Package http provides the authenticated transport for a WASAPI endpoint.
//
// This package handles:
//   - Form login with a cookie-jar session
//   - JSON metadata requests
//   - Streaming file downloads
//   - Classification of failures into status, protocol and network errors
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//	if err := client.Login(ctx, authURL, user, pass); err != nil {
//	    return err
//	}
//
//	var page *wasapi.Page
//	err := client.GetJSON(ctx, url, &page)
//
//	n, err := client.Download(ctx, location, file)
//
// # Errors
//
// A *StatusError means the server answered with an error status and a
// *ProtocolError means the HTTP exchange itself was invalid. Both are final
// for the request. Any other error comes from the network and may succeed
// when retried.
package http
