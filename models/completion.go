package models

// Completion is derived from the sections on every read and never stored.
type Completion struct {
	Complete bool                 `json:"complete"`
	Sections map[SectionKind]bool `json:"sections"`
	Missing  []string             `json:"missing"`
}

// Evaluate applies each section's predicate. Absent sections count as incomplete.
func Evaluate(s *Sections) Completion {
	c := Completion{
		Complete: true,
		Sections: make(map[SectionKind]bool, len(SectionKinds)),
		Missing:  []string{},
	}
	for _, kind := range SectionKinds {
		sec := s.Get(kind)
		ok := sec != nil && sec.Complete()
		c.Sections[kind] = ok
		if !ok {
			c.Complete = false
			c.Missing = append(c.Missing, string(kind))
		}
	}
	return c
}
