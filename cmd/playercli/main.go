// Package main provides the player CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apiconnect "github.com/osa030/vibechef/internal/api/connect"
	playerv1 "github.com/osa030/vibechef/internal/api/playerv1"
	"github.com/osa030/vibechef/internal/api/playerv1/playerv1connect"
)

var (
	app     = kingpin.New("vibechef-playercli", "vibechef player client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Control token (or set CONTROL_TOKEN env)").Envar("CONTROL_TOKEN").String()
	timeout = app.Flag("timeout", "Timeout for unary calls").Default("30s").Duration()

	// status command
	statusCmd = app.Command("status", "Show the player state").Default()

	// transport commands
	toggleCmd = app.Command("toggle", "Play or pause").Alias("play").Alias("pause")
	nextCmd   = app.Command("next", "Next track")
	prevCmd   = app.Command("prev", "Previous track").Alias("previous")

	selectCmd   = app.Command("select", "Play the track at a catalog position")
	selectIndex = selectCmd.Arg("index", "Catalog position (0-based)").Required().Int()

	seekCmd      = app.Command("seek", "Seek within the current track")
	seekFraction = seekCmd.Arg("fraction", "Position as a fraction of the track (0-1)").Required().Float64()

	volumeCmd     = app.Command("volume", "Set the volume")
	volumePercent = volumeCmd.Arg("percent", "Volume percent (0-100)").Required().Int()

	// load command
	loadCmd  = app.Command("load", "Replace the catalog with tracks from a JSON or YAML file")
	loadFile = loadCmd.Arg("file", "Track list file, - for stdin (empty list loads the samples)").Required().String()

	// generate command
	generateCmd    = app.Command("generate", "Generate a playlist for a mood")
	generateMood   = generateCmd.Arg("mood", "Mood description").Required().Strings()
	generateGenres = generateCmd.Flag("genre", "Genre hint (repeatable)").Short('g').Strings()
	generateCount  = generateCmd.Flag("count", "Number of tracks").Short('n').Int()
	generateClean  = generateCmd.Flag("avoid-explicit", "Skip explicit tracks").Bool()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Stream state notifications")
	showProgress = subscribeCmd.Flag("progress", "Print progress notifications").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := playerv1connect.NewPlayerServiceClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewControlTokenClientInterceptor(*token)),
	)

	if command == subscribeCmd.FullCommand() {
		subscribe(client)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var state *playerv1.PlayerState
	var err error

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		var resp *connect.Response[playerv1.GetStateResponse]
		if resp, err = client.GetState(ctx, connect.NewRequest(&playerv1.GetStateRequest{})); err == nil {
			state = resp.Msg.State
		}
	case toggleCmd.FullCommand():
		state, err = control(client.TogglePlayPause(ctx, connect.NewRequest(&playerv1.TogglePlayPauseRequest{})))
	case nextCmd.FullCommand():
		state, err = control(client.Next(ctx, connect.NewRequest(&playerv1.NextRequest{})))
	case prevCmd.FullCommand():
		state, err = control(client.Previous(ctx, connect.NewRequest(&playerv1.PreviousRequest{})))
	case selectCmd.FullCommand():
		state, err = control(client.SelectTrack(ctx, connect.NewRequest(&playerv1.SelectTrackRequest{Index: *selectIndex})))
	case seekCmd.FullCommand():
		state, err = control(client.Seek(ctx, connect.NewRequest(&playerv1.SeekRequest{Fraction: *seekFraction})))
	case volumeCmd.FullCommand():
		state, err = control(client.SetVolume(ctx, connect.NewRequest(&playerv1.SetVolumeRequest{Percent: *volumePercent})))
	case loadCmd.FullCommand():
		state, err = load(ctx, client, *loadFile)
	case generateCmd.FullCommand():
		state, err = generate(ctx, client)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	printState(state)
}

func control(resp *connect.Response[playerv1.ControlResponse], err error) (*playerv1.PlayerState, error) {
	if err != nil {
		return nil, err
	}
	return resp.Msg.State, nil
}

func load(ctx context.Context, client playerv1connect.PlayerServiceClient, path string) (*playerv1.PlayerState, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// YAML is a superset of JSON, so one decoder reads both
	var tracks []map[string]any
	if err := yaml.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	resp, err := client.LoadTracks(ctx, connect.NewRequest(&playerv1.LoadTracksRequest{Tracks: tracks}))
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loaded %d tracks\n", resp.Msg.Count)
	return resp.Msg.State, nil
}

func generate(ctx context.Context, client playerv1connect.PlayerServiceClient) (*playerv1.PlayerState, error) {
	resp, err := client.GeneratePlaylist(ctx, connect.NewRequest(&playerv1.GeneratePlaylistRequest{
		Mood:          strings.Join(*generateMood, " "),
		Genres:        *generateGenres,
		Count:         *generateCount,
		AvoidExplicit: *generateClean,
	}))
	if err != nil {
		return nil, err
	}
	fmt.Printf("%s\n%s\n", resp.Msg.Name, resp.Msg.Description)
	return resp.Msg.State, nil
}

func subscribe(client playerv1connect.PlayerServiceClient) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.Subscribe(ctx, connect.NewRequest(&playerv1.SubscribeRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	var initialSeq uint64
	for stream.Receive() {
		n := stream.Msg()
		if n.Type == apiconnect.InitialStateType {
			initialSeq = n.SequenceNo
		} else if n.SequenceNo < initialSeq {
			continue
		}
		if n.Type == "progress" && !*showProgress {
			continue
		}
		printNotification(n)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *playerv1.Notification) {
	fmt.Printf("\n[Sequence: %d] %s  %s\n", n.SequenceNo, strings.ToUpper(n.Type), time.Now().Format("15:04:05"))
	if n.Message != "" {
		fmt.Printf("  %s\n", n.Message)
	}
	if n.Type == "progress" {
		fmt.Printf("  %s / %s\n", n.State.ElapsedText, n.State.DurationText)
		return
	}
	printState(n.State)
}

func printState(s *playerv1.PlayerState) {
	if s == nil {
		return
	}
	if s.PlaylistName != "" {
		fmt.Printf("\nPlaylist: %s (%s)\n", s.PlaylistName, s.PlaylistDescription)
	}
	fmt.Printf("\n%s  %s - %s\n", formatTransport(s), s.Title, s.Artist)
	fmt.Printf("  %s / %s   volume %d%%\n", s.ElapsedText, s.DurationText, s.Volume)
	fmt.Printf("  source: %s\n", s.SourceURL)

	fmt.Println("\nCatalog:")
	for i, t := range s.Catalog {
		marker := " "
		if t.Current {
			marker = ">"
		}
		fmt.Printf(" %s %2d. %s - %s\n", marker, i, t.Title, t.Artist)
	}
}

func formatTransport(s *playerv1.PlayerState) string {
	var label string
	switch s.Transport {
	case "playing":
		label = "▶️  Playing"
	case "paused":
		label = "⏸  Paused"
	case "stopped":
		label = "⏹  Stopped"
	default:
		label = "❓ Unknown"
	}
	if s.Pending {
		label += " (loading)"
	}
	return label
}
