package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/GophCards/internal/client/study"
)

const studyHelp = "Enter/space: flip   n/→: next   p/←: previous   r: restart   q: back to decks"

// study runs the viewer for id until the user leaves it.
func (s *Shell) study(ctx context.Context, id string) {
	s.route = routeStudy + id
	if err := s.viewer.Open(ctx, id); err != nil {
		if errors.Is(err, study.ErrSuperseded) {
			return
		}
		s.colors.fail.Fprintln(s.out, study.Message(err))
		if to := s.viewer.Redirect(); to != "" {
			s.Navigate(ctx, to)
		}
		return
	}

	snap := s.viewer.Snapshot()
	if snap.State == study.StateEmpty {
		s.colors.title.Fprintln(s.out, snap.Name)
		fmt.Fprintln(s.out, "This collection has no flashcards yet.")
		s.viewer.Close()
		return
	}

	s.viewer.Mount(s.bus)
	defer s.viewer.Close()

	s.colors.dim.Fprintln(s.out, studyHelp)
	s.colors.card(s.out, snap)
	for {
		fmt.Fprint(s.out, "study> ")
		if !s.scanner.Scan() {
			return
		}
		line := s.scanner.Text()
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "q", "quit", "back", "exit":
			s.route = RouteDecks
			return
		case "help", "?":
			s.colors.dim.Fprintln(s.out, studyHelp)
			continue
		}

		if key, ok := study.LineKey(line); ok {
			s.bus.Dispatch(key)
		} else if cmd, ok := study.ParseCommand(line); ok {
			s.viewer.Apply(cmd)
		} else {
			s.colors.dim.Fprintln(s.out, studyHelp)
			continue
		}
		s.colors.card(s.out, s.viewer.Snapshot())
	}
}
