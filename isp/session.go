package isp

import (
	"fmt"
	"strings"
	"time"
)

// SessionState is where a Session sits in the lifecycle spec.md's
// flashing orchestrator drives it through.
type SessionState int

const (
	StateIdle SessionState = iota
	StateIdentified
	StateKeyed
	StateErased
	StateWriting
	StateVerified
	StateReset
	StateClosed
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIdentified:
		return "identified"
	case StateKeyed:
		return "keyed"
	case StateErased:
		return "erased"
	case StateWriting:
		return "writing"
	case StateVerified:
		return "verified"
	case StateReset:
		return "reset"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// sessionConfig holds the options a Session is constructed with.
type sessionConfig struct {
	logger   Logger
	retries  int
	retryGap time.Duration
	progress ProgressCallback
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		logger:   nopLogger{},
		retries:  0,
		retryGap: 200 * time.Millisecond,
	}
}

// Option configures a Session.
type Option func(*sessionConfig)

// WithLogger attaches a Logger; without one, Session logs nothing.
func WithLogger(l Logger) Option {
	return func(c *sessionConfig) { c.logger = l }
}

// WithRetries sets how many times Identify and SetKey are retried on
// failure before giving up, with a 200ms backoff between attempts.
func WithRetries(n int) Option {
	return func(c *sessionConfig) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithProgressCallback attaches a callback invoked during Flash.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *sessionConfig) { c.progress = cb }
}

// Session owns one open Transport for the duration of a single command
// and accumulates the state the protocol needs as it progresses:
// resolved chip info, UID, BTVER, and the XOR key.
type Session struct {
	cfg       sessionConfig
	transport Transport
	db        *ChipDB
	state     SessionState

	info *ChipInfo
	uid  []byte
	btver [2]byte

	sessionKey [sessionKeySize]byte
	xorKey     byte
}

// NewSession wraps an already-open Transport. The caller retains
// ownership of db across sessions; it is read-only and shared.
func NewSession(t Transport, db *ChipDB, opts ...Option) *Session {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{cfg: cfg, transport: t, db: db, state: StateIdle}
}

// Info returns the resolved chip, or nil before Identify succeeds.
func (s *Session) Info() *ChipInfo { return s.info }

// UID returns the chip UID read by Identify's UID variant, truncated to
// the chip's actual UID size.
func (s *Session) UID() []byte { return s.uid }

// BTVERString renders the two BCD bootloader-version bytes as "MM.mm".
func (s *Session) BTVERString() string {
	return fmt.Sprintf("%02x.%02x", s.btver[0], s.btver[1])
}

// UIDString renders the chip UID as lowercase dash-separated hex bytes.
func UIDString(uid []byte) string {
	parts := make([]string, len(uid))
	for i, b := range uid {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, "-")
}

// Identify sends the plain Identify command, resolves the chip through
// db, then sends the UID-returning variant to fill in UID and BTVER.
// Retried up to cfg.retries times on transport or protocol error.
func (s *Session) Identify() (*ChipInfo, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.retries; attempt++ {
		if attempt > 0 {
			s.cfg.logger.Warn("retrying identify", "attempt", attempt)
			time.Sleep(s.cfg.retryGap)
		}
		info, err := s.identifyOnce()
		if err == nil {
			s.info = info
			s.state = StateIdentified
			s.cfg.logger.Info("identified chip", "chip", info.String())
			return info, nil
		}
		lastErr = err
	}
	s.state = StateFailed
	return nil, lastErr
}

func (s *Session) identifyOnce() (*ChipInfo, error) {
	resp, err := Transfer(s.transport, NewIdentify())
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
	}
	if len(resp.Data) < 2 {
		return nil, &ProtocolFramingError{Reason: "identify response too short"}
	}
	chipID, deviceType := resp.Data[0], resp.Data[1]

	info, err := s.db.Probe(deviceType, chipID)
	if err != nil {
		return nil, err
	}

	uidResp, err := Transfer(s.transport, NewIdentifyUID())
	if err != nil {
		return nil, err
	}
	if !uidResp.OK() {
		return nil, &ProtocolStatusError{Cmd: uidResp.Cmd, Status: uidResp.Status}
	}
	want := 4 + info.UIDSize()
	if len(uidResp.Data) < want {
		return nil, &ProtocolFramingError{Reason: "identify(uid) response too short"}
	}
	s.btver = [2]byte{uidResp.Data[2], uidResp.Data[3]}
	s.uid = append([]byte(nil), uidResp.Data[4:want]...)

	return info, nil
}

// SetKey negotiates the session XOR key: build a 30-byte seed from a
// host-chosen 7-byte key source, send it via IspKey, and derive the
// session key and XOR byte from the chip UID and chip_id.
func (s *Session) SetKey(source [7]byte) error {
	if s.info == nil {
		return &NotSupportedError{Op: "set-key", Chip: "<unidentified>"}
	}
	var lastErr error
	for attempt := 0; attempt <= s.cfg.retries; attempt++ {
		if attempt > 0 {
			s.cfg.logger.Warn("retrying set-key", "attempt", attempt)
			time.Sleep(s.cfg.retryGap)
		}
		seed := BuildKeySeed(source)
		resp, err := Transfer(s.transport, NewIspKey(seed[:]))
		if err != nil {
			lastErr = err
			continue
		}
		if !resp.OK() {
			lastErr = &ProtocolStatusError{Cmd: resp.Cmd, Status: resp.Status}
			continue
		}
		s.sessionKey = DeriveSessionKey(s.uid, s.info.ChipID, seed)
		s.xorKey = XORKeyByte(s.sessionKey)
		s.state = StateKeyed
		return nil
	}
	s.state = StateFailed
	return lastErr
}

// XORKey is the single byte Program/Verify/DataProgram payloads are
// obfuscated with. Valid only after a successful SetKey.
func (s *Session) XORKey() byte { return s.xorKey }

// State reports where in the lifecycle the session currently is.
func (s *Session) State() SessionState { return s.state }

// Transport exposes the underlying link for the orchestrator. The
// session closes it only when Close is called.
func (s *Session) Transport() Transport { return s.transport }

// Close closes the underlying transport. Safe to call more than once.
func (s *Session) Close() error {
	err := s.transport.Close()
	s.state = StateClosed
	return err
}
