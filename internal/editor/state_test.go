package editor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/chartd/internal/chart"
)

func TestState_Setters(t *testing.T) {
	s := New(chart.NewSpecification(800, 600))

	require.Equal(t, "", s.ConfigText())
	require.Equal(t, "800", s.Width())
	require.Equal(t, "600", s.Height())

	s.SetConfig("{not json")
	s.SetWidth("")
	s.SetHeight("12x")

	require.Equal(t, chart.Specification{ConfigText: "{not json", Width: "", Height: "12x"}, s.Snapshot())
}

func TestState_Subscribe(t *testing.T) {
	s := New(chart.Specification{})

	var seen []chart.Specification
	unsubscribe := s.Subscribe(func(spec chart.Specification) {
		seen = append(seen, spec)
	})

	s.SetConfig(`{"type":"bar"}`)
	s.Replace(chart.Specification{ConfigText: "{}", Width: "1", Height: "2"})

	require.Len(t, seen, 2)
	require.Equal(t, `{"type":"bar"}`, seen[0].ConfigText)
	require.Equal(t, chart.Specification{ConfigText: "{}", Width: "1", Height: "2"}, seen[1])

	unsubscribe()
	unsubscribe()
	s.SetWidth("3")
	require.Len(t, seen, 2, "no notifications after unsubscribe")
}

func TestState_SubscriberSeesWrite(t *testing.T) {
	s := New(chart.Specification{})

	var fromState string
	s.Subscribe(func(chart.Specification) {
		fromState = s.ConfigText()
	})

	s.SetConfig("x")
	require.Equal(t, "x", fromState, "write must be visible to readers during notification")
}

func TestState_ConcurrentWrites(t *testing.T) {
	s := New(chart.Specification{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SetWidth("100")
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	require.Equal(t, "100", s.Width())
}
