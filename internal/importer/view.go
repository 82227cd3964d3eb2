package importer

import "github.com/MrSnakeDoc/linkdeck/internal/domain"

// ErrorView is the last failure as shown to the operator.
type ErrorView struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NewErrorView describes err, or returns nil.
func NewErrorView(err error) *ErrorView {
	if err == nil {
		return nil
	}
	return &ErrorView{Kind: Kind(err), Message: OperatorMessage(err), Retryable: IsRetryable(err)}
}

// View is a read-only copy of the pipeline for rendering.
type View struct {
	State   State      `json:"state"`
	RawText string     `json:"raw_text,omitempty"`
	Error   *ErrorView `json:"error,omitempty"`

	SessionID string                `json:"session_id,omitempty"`
	Summary   string                `json:"summary,omitempty"`
	Dropped   int                   `json:"dropped,omitempty"`
	Total     int                   `json:"total"`
	Selected  int                   `json:"selected"`
	Editing   int                   `json:"editing"`
	Groups    []Group               `json:"groups,omitempty"`
	Mapping   domain.SectionMapping `json:"mapping,omitempty"`
	Sections  []domain.Section      `json:"sections,omitempty"`

	Result *domain.ImportResult `json:"result,omitempty"`
}

// View returns the current state. Groups are derived on each call.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:   c.state,
		RawText: c.rawText,
		Error:   NewErrorView(c.lastErr),
		Editing: NoEditing,
		Result:  c.result,
	}

	if s := c.session; s != nil {
		v.SessionID = s.ID()
		v.Summary = s.Summary()
		v.Dropped = s.Dropped()
		v.Total = s.Len()
		v.Selected = len(s.SelectedIndices())
		v.Editing = s.Editing()
		v.Groups = s.Groups()
		v.Mapping = s.Mapping()
		v.Sections = s.Sections()
	}
	return v
}
