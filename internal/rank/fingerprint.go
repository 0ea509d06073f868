package rank

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// segmentFingerprint digests (video, start, end) into a stable cache key.
// Bounds are rounded to hundredths of a second, so two segments with the
// same rounded bounds on the same video collide intentionally.
func segmentFingerprint(video string, start, end time.Duration) string {
	key := fmt.Sprintf("%s_%.2f_%.2f", video, start.Seconds(), end.Seconds())
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
