package state

// Platform is the singleton registry record. It is created exactly once and
// threaded explicitly into every operation that reads or mutates it.
type Platform struct {
	Authority    string
	Treasury     string
	TotalMarkets int64
	TotalVolume  int64
	CreatedAt    int64 // epoch seconds
	Version      int64 // Optimistic concurrency control
}

// CanonicalBytes returns deterministic serialization for hashing
func (p *Platform) CanonicalBytes() []byte {
	buf := make([]byte, 0, 128)
	buf = appendString(buf, p.Authority)
	buf = appendString(buf, p.Treasury)
	buf = appendInt64LE(buf, p.TotalMarkets)
	buf = appendInt64LE(buf, p.TotalVolume)
	buf = appendInt64LE(buf, p.CreatedAt)
	return buf
}

// PlatformStore holds the singleton platform record
type PlatformStore struct {
	platform *Platform
}

func NewPlatformStore() *PlatformStore {
	return &PlatformStore{}
}

// Initialize creates the singleton. Fails if it already exists.
func (ps *PlatformStore) Initialize(p *Platform) error {
	if ps.platform != nil {
		return ErrPlatformExists
	}
	ps.platform = p
	return nil
}

// Get returns the platform record, or ErrPlatformNotInitialized.
func (ps *PlatformStore) Get() (*Platform, error) {
	if ps.platform == nil {
		return nil, ErrPlatformNotInitialized
	}
	return ps.platform, nil
}

// Initialized reports whether the singleton exists
func (ps *PlatformStore) Initialized() bool {
	return ps.platform != nil
}

// Restore directly sets the platform (used for snapshot restore)
func (ps *PlatformStore) Restore(p *Platform) {
	ps.platform = p
}
