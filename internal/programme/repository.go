package programme

// Repository is an in-memory index of sessions by code. It is built once per
// accepted schedule and only read afterwards.
type Repository struct {
	sessions map[string]Session
}

func NewRepository(sessions ...Session) *Repository {
	r := &Repository{sessions: make(map[string]Session, len(sessions))}
	for _, s := range sessions {
		r.Add(s)
	}
	return r
}

// Add stores s under its code. Sessions without a code are skipped.
func (r *Repository) Add(s Session) bool {
	if s.Code == "" {
		return false
	}
	r.sessions[s.Code] = s
	return true
}

// Get returns a copy of the session with the given code.
func (r *Repository) Get(code string) (Session, bool) {
	if r == nil {
		return Session{}, false
	}
	s, ok := r.sessions[code]
	if ok {
		s.Speakers = append([]Speaker(nil), s.Speakers...)
	}
	return s, ok
}

func (r *Repository) Len() int {
	if r == nil {
		return 0
	}
	return len(r.sessions)
}
