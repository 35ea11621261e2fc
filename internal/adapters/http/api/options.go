package api

// DefaultMaxBodyBytes bounds a POST /datasets body when no limit is configured.
const DefaultMaxBodyBytes int64 = 512 << 20

// Option configures a Server.
type Option func(*Server)

// WithMaxBodyBytes bounds the bytes read from a POST /datasets body.
// Values below 1 keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.datasetsHandler.maxBodyBytes = n
		}
	}
}
