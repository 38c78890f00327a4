// Package s3encrypt audits and remediates encryption at rest for objects in
// an S3 bucket.
//
// Every object that does not report the target server-side encryption is
// rewritten onto itself with an encrypting copy. User metadata is carried by
// the copy and the object's ACL snapshot is restored afterwards, so neither
// permissions nor metadata change.
//
// Key features:
//   - Resumable bucket passes: pass the previous LastKey as StartAfter
//   - Idempotent: objects already under the target are skipped
//   - Per-object failures are counted and reported without stopping the pass
//   - Dry run classifies objects without issuing any write
//   - Multipart rewrite for objects above the 5 GiB copy limit
//
// Example usage:
//
//	store, err := s3encrypt.New(ctx, s3encrypt.WithRegion("eu-west-1"))
//	if err != nil {
//	    return err
//	}
//
//	enc, err := s3encrypt.NewEncrypter(store, s3encrypt.WithLogger(slog.Default()))
//	if err != nil {
//	    return err
//	}
//
//	res, err := enc.RemediateBucket(ctx, s3encrypt.BucketConfig{Bucket: "my-bucket"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Examined, res.Remediated, res.LastKey)
package s3encrypt
