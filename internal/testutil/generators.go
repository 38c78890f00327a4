package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/s3encrypt/s3types"
)

// GenerateTestBucketName generates a valid, unique test bucket name.
func GenerateTestBucketName(prefix string) string {
	name := fmt.Sprintf("%s-%d-%d", prefix, time.Now().Unix(), rand.Int31n(10000))
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-.")
	}
	return name
}

// GenerateTestKey generates a unique object key under prefix.
func GenerateTestKey(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%stest-object-%d-%d", prefix, time.Now().UnixNano(), rand.Int63n(100000))
}

// SeedBucket stores count objects named file_<n>.txt in m. The first
// encrypted objects carry AES256; the rest are unencrypted. Every object gets
// user metadata and a public-read ACL so preservation can be checked.
func SeedBucket(m *MemStorage, bucket string, count, encrypted int) []string {
	keys := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		key := fmt.Sprintf("file_%d.txt", i)
		meta := s3types.ObjectMetadata{
			ContentLength: int64(100 * i),
			ContentType:   "text/plain",
			ETag:          fmt.Sprintf(`"etag-%d"`, i),
			Metadata:      map[string]string{"index": fmt.Sprint(i)},
		}
		if i <= encrypted {
			meta.ServerSideEncryption = s3types.SSES3
		}
		m.Put(bucket, key, meta, PublicReadACL())
		keys = append(keys, key)
	}
	return keys
}
