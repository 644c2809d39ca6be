package poller

import (
	"testing"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/stretchr/testify/require"
)

type fixedRand struct{ n int }

func (r fixedRand) Intn(int) int { return r.n }

func TestBackoffDelay(t *testing.T) {
	p := DefaultPlanner()
	require.Equal(t, 5*time.Minute, p.BackoffDelay(1))
	require.Equal(t, 15*time.Minute, p.BackoffDelay(2))
	require.Equal(t, 30*time.Minute, p.BackoffDelay(3))
	require.Equal(t, 60*time.Minute, p.BackoffDelay(4))
	require.Equal(t, 60*time.Minute, p.BackoffDelay(100))
}

func TestNextCheckDelay_Terminal(t *testing.T) {
	p := DefaultPlanner()
	require.Equal(t, 365*24*time.Hour, p.NextCheckDelay(models.TrackingStatusDelivered))
	require.Equal(t, 365*24*time.Hour, p.NextCheckDelay(models.TrackingStatusCancelled))
}

func TestNextCheckDelay_InTransitWindow(t *testing.T) {
	p := NewPlanner(PlannerConfig{
		InTransitMinDelay: 30 * time.Minute,
		InTransitMaxDelay: 120 * time.Minute,
	}, fixedRand{n: 0})
	require.Equal(t, 30*time.Minute, p.NextCheckDelay(models.TrackingStatusInTransit))

	// min==max skips the rand entirely.
	p = NewPlanner(PlannerConfig{
		InTransitMinDelay: time.Minute,
		InTransitMaxDelay: time.Minute,
	}, nil)
	require.Equal(t, time.Minute, p.NextCheckDelay(models.TrackingStatusPickedUp))
}

func TestNextCheckDelay_Unknown(t *testing.T) {
	p := DefaultPlanner()
	require.Equal(t, 90*time.Minute, p.NextCheckDelay(models.TrackingStatusUnknown))
	require.Equal(t, 90*time.Minute, p.NextCheckDelay(models.TrackingStatusCreated))
}
