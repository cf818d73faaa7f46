package supplier

import "strings"

type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusPending
	StatusSuccess
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a parsed supplier transaction status. Raw keeps the value exactly as the supplier sent it.
type Status struct {
	Kind StatusKind
	Raw  string
}

func (s Status) IsTerminal() bool {
	return s.Kind == StatusSuccess || s.Kind == StatusFailed
}

// ParseStatus maps the supplier vocabulary case-insensitively. An absent status means pending.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sukses", "success":
		return Status{Kind: StatusSuccess, Raw: raw}
	case "pending", "":
		return Status{Kind: StatusPending, Raw: raw}
	case "gagal", "failed":
		return Status{Kind: StatusFailed, Raw: raw}
	default:
		return Status{Kind: StatusUnknown, Raw: raw}
	}
}
