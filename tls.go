package zsend

import (
	"crypto/tls"
	"fmt"
)

// TLSSession is the record layer of an established TLS session. zsend
// never touches socket options underneath a session: once bytes are TLS
// framed, corking happens by holding records back, not segments.
type TLSSession interface {
	// Send encrypts and writes p. A would-block condition is reported as
	// ErrTLSAgain, an interrupted call as ErrTLSInterrupted; any other
	// error means the session is broken.
	Send(p []byte) (int, error)
	// Cork starts holding plaintext back so several Sends share records.
	Cork()
	// Uncork writes everything held back. On error some data is still
	// held and the session stays corked.
	Uncork() error
}

// maxRecordPayload is the TLS plaintext record limit (RFC 8446 5.1).
const maxRecordPayload = 16 * 1024

// RecordSession implements TLSSession over crypto/tls. While corked, Sends
// are buffered up to one record's worth of plaintext and written together,
// so a header and the start of a body go out in the same record.
//
// crypto/tls writes block, so RecordSession suits ThreadPerConnection
// servers; event-driven servers should supply their own TLSSession.
type RecordSession struct {
	conn   *tls.Conn
	corked bool
	held   []byte
}

func NewRecordSession(conn *tls.Conn) *RecordSession {
	return &RecordSession{conn: conn}
}

func (s *RecordSession) Send(p []byte) (int, error) {
	if !s.corked {
		return s.write(p)
	}
	if len(s.held)+len(p) > maxRecordPayload {
		if err := s.flush(); err != nil {
			return 0, err
		}
		if len(p) >= maxRecordPayload {
			return s.write(p)
		}
	}
	s.held = append(s.held, p...)
	return len(p), nil
}

func (s *RecordSession) Cork() {
	s.corked = true
}

func (s *RecordSession) Uncork() error {
	if err := s.flush(); err != nil {
		return err
	}
	s.corked = false
	return nil
}

// Held returns the number of plaintext bytes waiting for Uncork.
func (s *RecordSession) Held() int {
	return len(s.held)
}

func (s *RecordSession) flush() error {
	if len(s.held) == 0 {
		return nil
	}
	n, err := s.write(s.held)
	s.held = s.held[:copy(s.held, s.held[n:])]
	return err
}

func (s *RecordSession) write(p []byte) (int, error) {
	n, err := s.conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("tls record send: %w", err)
	}
	return n, nil
}
