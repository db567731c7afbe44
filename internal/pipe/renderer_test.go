package pipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/fbclock/internal/consts"
	"github.com/srlehn/fbclock/internal/errors"
)

func TestCommandFormat(t *testing.T) {
	assert.Equal(t, `TIME 2:05:09 PM`, cmdTime(`2:05:09 PM`))
	assert.Equal(t, `DATE Monday, January 2, 2006`, cmdDate(`Monday, January 2, 2006`))
	assert.Equal(t, `BRIGHT 0.30`, cmdBrightness(0.3))
	assert.Equal(t, `BRIGHT 1.00`, cmdBrightness(1))
	assert.Equal(t, `COLOR #00FF00`, cmdColor(`#00FF00`))
	assert.Equal(t, `SHIFT 3 -5`, cmdShift(3, -5))
	assert.Equal(t, `SHIFT 0 0`, cmdShift(0, 0))
	assert.Equal(t, `QUIT`, cmdQuit())
}

func TestSendThroughProcess(t *testing.T) {
	// cat consumes stdin until QUIT closes the pipe
	r := New(`cat`, nil)
	require.NoError(t, r.Start())
	assert.NoError(t, r.Time(`2:05:09 PM`))
	assert.NoError(t, r.Brightness(0.3))
	assert.NoError(t, r.Shift(3, -5))
	assert.NoError(t, r.Close())
	assert.False(t, r.Stopped())
}

func TestRestartBudgetExhaustion(t *testing.T) {
	// a nonexistent binary fails every restart attempt
	r := New(`/nonexistent/fbclock-renderer`, nil)
	err := r.send(cmdTime(`12:00:00`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, consts.ErrRendererStopped))
	assert.True(t, r.Stopped())

	// once stopped it stays stopped
	err = r.Brightness(1)
	assert.True(t, errors.Is(err, consts.ErrRendererStopped))
	err = r.Start()
	assert.True(t, errors.Is(err, consts.ErrRendererStopped))
}
