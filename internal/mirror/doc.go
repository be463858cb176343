// Package mirror copies retrieved WARC files into object storage.
//
// Any gocloud.dev/blob bucket URL works; the command registers the s3blob,
// gcsblob and memblob drivers:
//
//	m, err := mirror.Open(ctx, "s3://preservation?region=us-west-2", "wasapi", fs, logger)
//	defer m.Close()
//
//	res, err := m.Put(ctx, localPath, m.Key("AIT_5425/302671/.../file.warc.gz"), md5Hex)
//
// Objects are keyed by the file's path below the output base directory, so
// the bucket mirrors the local layout.
package mirror
