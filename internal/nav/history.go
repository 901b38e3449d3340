package nav

// History abstracts the session history stack. Every completed in-app
// navigation pushes an entry; the initial page replaces instead, so the
// first entry is not duplicated.
type History interface {
	Push(path string)
	Replace(path string)
}

// MemoryHistory is an in-process history stack. Back pops the current
// entry and returns the one beneath it, which callers replay through
// Router.Navigate with addToHistory=false.
type MemoryHistory struct {
	entries []string
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) Push(path string) {
	h.entries = append(h.entries, path)
}

func (h *MemoryHistory) Replace(path string) {
	if len(h.entries) == 0 {
		h.entries = append(h.entries, path)
		return
	}
	h.entries[len(h.entries)-1] = path
}

func (h *MemoryHistory) Back() (string, bool) {
	if len(h.entries) < 2 {
		return "", false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return h.entries[len(h.entries)-1], true
}

func (h *MemoryHistory) Current() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	return h.entries[len(h.entries)-1], true
}

func (h *MemoryHistory) Len() int {
	return len(h.entries)
}
