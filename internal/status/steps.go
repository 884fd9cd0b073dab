package status

// Step is one stack call in a multi-call operation
type Step struct {
	Op  string
	Run func() Code
}

// Steps runs the calls in order and stops at the first one that fails.
// The returned error names the failing step, later steps are never issued.
func Steps(steps ...Step) error {
	for _, s := range steps {
		if s.Run == nil {
			continue
		}
		if err := FromCode(s.Op, s.Run()); err != nil {
			return err
		}
	}
	return nil
}
