// Command s3encrypt audits an S3 bucket and rewrites objects that are not
// stored under the requested server-side encryption, keeping their
// metadata and access control lists.
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(submain(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
