package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type lineLogger struct {
	debug bool
	lines []string
}

func (l *lineLogger) DebugEnabled() bool    { return l.debug }
func (l *lineLogger) SetDebug(enabled bool) { l.debug = enabled }
func (l *lineLogger) Debugf(format string, args ...any) {
	l.lines = append(l.lines, "D "+fmt.Sprintf(format, args...))
}
func (l *lineLogger) Infof(format string, args ...any) {
	l.lines = append(l.lines, "I "+fmt.Sprintf(format, args...))
}
func (l *lineLogger) Warnf(format string, args ...any) {
	l.lines = append(l.lines, "W "+fmt.Sprintf(format, args...))
}
func (l *lineLogger) Errorf(format string, args ...any) {
	l.lines = append(l.lines, "E "+fmt.Sprintf(format, args...))
}

func TestWithPrefixesMessages(t *testing.T) {
	root := &lineLogger{}
	layer := With(root, "layer m.triangles.0")
	layer.Infof("built %d meshes", 3)
	layer.Debugf("dropped while debug is off")
	layer.SetDebug(true)
	layer.Debugf("view %d", 1)
	With(layer, "view 2").Errorf("100%% broken")

	assert.Equal(t, []string{
		"I layer m.triangles.0: built 3 meshes",
		"D layer m.triangles.0: view 1",
		"E layer m.triangles.0: view 2: 100% broken",
	}, root.lines)
	assert.True(t, root.DebugEnabled())
}

func TestWithNilIsNop(t *testing.T) {
	l := With(nil, "x")
	assert.NotNil(t, l)
	l.Errorf("ignored")
	assert.Equal(t, NewNopLogger(), With(NewNopLogger(), "y"))
}
