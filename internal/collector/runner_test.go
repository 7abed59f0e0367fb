package collector

import (
	"context"
	"fmt"
	"strings"
)

// fakeRunner serves canned output keyed by the command name.
type fakeRunner struct {
	out  map[string][]byte
	errs map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ ...string) ([]byte, error) {
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	if out, ok := f.out[name]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("%s: executable file not found in $PATH", name)
}

func fixture(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}
