package buildmode

// Name returns "debug" or "release".
func Name() string {
	if Debug {
		return "debug"
	}
	return "release"
}
