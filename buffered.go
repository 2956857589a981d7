package zsend

import (
	"math"

	"github.com/bytedance/gopkg/lang/mcache"
)

// SendFileBuffered is the fallback for file responses that cannot use
// SendFileRegion: TLS connections and responses downgraded by
// Unsupported. It reads at most one buffer of the region with pread and
// hands it to SendSingle; the result counts only bytes the socket took,
// so the caller advances its offset by N and calls again.
func (s *Sender) SendFileBuffered(st *SocketState, region FileRegion, intent CorkIntent) Result {
	r := s.sendFileBuffered(st, region, intent)
	s.metrics.observe("buffered", r)
	return r
}

func (s *Sender) sendFileBuffered(st *SocketState, region FileRegion, intent CorkIntent) Result {
	if region.Length == 0 {
		return sent(0)
	}
	if region.Offset > math.MaxInt64 {
		return failed(Classify(errOffsetRange), errOffsetRange)
	}
	size := s.bufSize
	if region.Length < uint64(size) {
		size = int(region.Length)
	}
	buf := mcache.Malloc(size)
	defer mcache.Free(buf)

	n, err := s.sys.Pread(region.FD, buf, int64(region.Offset))
	if err != nil {
		if kind := Classify(err); kind.Temporary() {
			return failed(kind, err)
		}
		// the socket is fine, only this file is unreadable
		err = asBadDescriptor(err)
		return failed(Classify(err), err)
	}
	if n == 0 {
		return failed(Classify(errFileTruncated), errFileTruncated)
	}
	if uint64(n) < region.Length {
		// more of this response follows right after
		if intent == NoCork {
			intent = MayCork
		}
	}
	return s.sendSingle(st, buf[:n], intent)
}
