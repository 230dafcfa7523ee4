package instances

// Presentation describes how a status is shown to an operator.
type Presentation struct {
	Status ConnectionStatus `json:"status"`
	Label  string           `json:"label"`
	Color  string           `json:"color"`
}

// Present returns the presentation for s. The switch must cover every
// value in AllStatuses.
func Present(s ConnectionStatus) Presentation {
	switch s {
	case StatusOnline:
		return Presentation{Status: s, Label: "Connected", Color: "green"}
	case StatusOffline:
		return Presentation{Status: s, Label: "Disconnected", Color: "red"}
	case StatusError:
		return Presentation{Status: s, Label: "Error", Color: "red"}
	case StatusConnecting:
		return Presentation{Status: s, Label: "Connecting", Color: "yellow"}
	}
	return Presentation{Status: s, Label: string(s), Color: "gray"}
}

// PresentationTable returns the presentation of every known status.
func PresentationTable() []Presentation {
	table := make([]Presentation, len(AllStatuses))
	for i, s := range AllStatuses {
		table[i] = Present(s)
	}
	return table
}
