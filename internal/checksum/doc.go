// Package checksum verifies downloaded files against server-declared digests.
//
// Only md5 and sha1 are supported. Algorithm names come from the checksum
// map of a WASAPI file record and are parsed into the closed Algorithm set:
//
//	v := checksum.NewVerifier(afero.NewOsFs(), logger)
//	ok, err := v.Verify("md5", "f08b0bf60733b61216e288cb7620bd4a", path)
package checksum
