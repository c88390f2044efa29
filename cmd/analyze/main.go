// Command analyze prints quick, human-readable summaries of archived session
// transcripts in a sessions directory. For each record it reports message
// counts, rejected inbound messages by kind, how the match ended and
// whether the archived state agrees with a fresh replay.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/wricardo/mcp-training/daifugo/game/protocol"
	"github.com/wricardo/mcp-training/daifugo/game/selection"
	"github.com/wricardo/mcp-training/daifugo/game/session"
)

// Summary is what analyze reports for one record
type Summary struct {
	ID        string
	Room      string
	Player    string
	Inbound   int
	Outbound  int
	Rejected  map[protocol.ErrorKind]int
	Phase     protocol.Phase
	Standings []string
	Matches   bool
}

func main() {
	dir := flag.String("dir", "sessions", "directory of archived sessions")
	policy := flag.String("policy", "clear", "selection policy used for replay")
	flag.Parse()

	p, err := selection.ParsePolicy(*policy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := analyzeDir(os.Stdout, *dir, p); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func analyzeDir(w io.Writer, dir string, policy selection.Policy) error {
	store, err := session.NewFilePersistence(dir)
	if err != nil {
		return err
	}
	ids, err := store.ListAll()
	if err != nil {
		return err
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		fmt.Fprintf(w, "No archived sessions in %s\n", dir)
		return nil
	}

	for _, id := range ids {
		rec, err := store.Load(id)
		if err != nil {
			fmt.Fprintf(w, "\n=== %s ===\nError reading record: %v\n", id, err)
			continue
		}
		printSummary(w, analyze(rec, policy))
	}
	return nil
}

func analyze(rec *session.Record, policy selection.Policy) Summary {
	result := session.Replay(rec.Transcript, policy)

	s := Summary{
		ID:       rec.ID,
		Room:     rec.Room,
		Player:   rec.Player,
		Inbound:  result.Inbound,
		Outbound: result.Outbound,
		Rejected: make(map[protocol.ErrorKind]int),
		Phase:    result.State.Phase,
	}
	for _, f := range result.Failures {
		s.Rejected[f.Kind]++
	}
	s.Standings, _ = result.State.Standings()

	// The archived selection is local-only and never replayed.
	s.Matches = result.State.Phase == rec.State.Phase &&
		result.State.TurnIndex == rec.State.TurnIndex &&
		len(result.State.Hand) == len(rec.State.Hand) &&
		len(result.State.Players) == len(rec.State.Players) &&
		len(result.State.Log) == len(rec.State.Log)
	return s
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\n=== %s ===\n", s.ID)
	fmt.Fprintf(w, "Room: %s, Player: %s\n", s.Room, s.Player)
	fmt.Fprintf(w, "Messages: %d in, %d out\n", s.Inbound, s.Outbound)

	if len(s.Rejected) > 0 {
		kinds := make([]string, 0, len(s.Rejected))
		for k := range s.Rejected {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "⚠️  Rejected %s: %d\n", k, s.Rejected[protocol.ErrorKind(k)])
		}
	}

	fmt.Fprintf(w, "Final phase: %s\n", s.Phase)
	if len(s.Standings) > 0 {
		fmt.Fprintf(w, "Standings: %v\n", s.Standings)
	}

	if s.Matches {
		fmt.Fprintln(w, "✅ Replay matches the archived state")
	} else {
		fmt.Fprintln(w, "⚠️  Replay differs from the archived state")
	}
}
