package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/vibechef/internal/api/playerv1"
	"github.com/osa030/vibechef/internal/api/playerv1/playerv1connect"
	"github.com/osa030/vibechef/internal/app/catalog"
	"github.com/osa030/vibechef/internal/app/notification"
	"github.com/osa030/vibechef/internal/app/playback"
	"github.com/osa030/vibechef/internal/domain/playlist"
)

// InitialStateType is the type of the first notification of every stream.
const InitialStateType = "initial_state"

const subscriptionBuffer = 64

// Player is the player service used by PlayerService.
type Player interface {
	View() playback.View
	Playlist() *playlist.Playlist
	TogglePlayPause() error
	Next() error
	Previous() error
	SelectTrack(index int) error
	Seek(fraction float64) error
	SetVolume(percent int) (int, error)
	LoadTracks(records []map[string]any) (catalog.Catalog, error)
	Generate(ctx context.Context, req playlist.Request) (*playlist.Playlist, error)
	GetNotificationManager() *notification.Manager
	Done() <-chan struct{}
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	player Player
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(p Player) *PlayerService {
	return &PlayerService{player: p}
}

// Ensure PlayerService implements the interface.
var _ playerv1connect.PlayerServiceHandler = (*PlayerService)(nil)

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[playerv1.GetStateRequest],
) (*connect.Response[playerv1.GetStateResponse], error) {
	return connect.NewResponse(&playerv1.GetStateResponse{State: s.state()}), nil
}

// TogglePlayPause pauses or resumes playback.
func (s *PlayerService) TogglePlayPause(
	ctx context.Context,
	req *connect.Request[playerv1.TogglePlayPauseRequest],
) (*connect.Response[playerv1.ControlResponse], error) {
	return s.control(s.player.TogglePlayPause())
}

// Next moves to the next track.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[playerv1.NextRequest],
) (*connect.Response[playerv1.ControlResponse], error) {
	return s.control(s.player.Next())
}

// Previous moves to the previous track.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[playerv1.PreviousRequest],
) (*connect.Response[playerv1.ControlResponse], error) {
	return s.control(s.player.Previous())
}

// SelectTrack jumps to a catalog position.
func (s *PlayerService) SelectTrack(
	ctx context.Context,
	req *connect.Request[playerv1.SelectTrackRequest],
) (*connect.Response[playerv1.ControlResponse], error) {
	return s.control(s.player.SelectTrack(req.Msg.Index))
}

// Seek moves within the current track.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[playerv1.SeekRequest],
) (*connect.Response[playerv1.ControlResponse], error) {
	return s.control(s.player.Seek(req.Msg.Fraction))
}

// SetVolume sets the output volume.
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[playerv1.SetVolumeRequest],
) (*connect.Response[playerv1.ControlResponse], error) {
	_, err := s.player.SetVolume(req.Msg.Percent)
	return s.control(err)
}

// LoadTracks replaces the catalog with the supplied records.
func (s *PlayerService) LoadTracks(
	ctx context.Context,
	req *connect.Request[playerv1.LoadTracksRequest],
) (*connect.Response[playerv1.LoadTracksResponse], error) {
	cat, err := s.player.LoadTracks(req.Msg.Tracks)
	if err != nil {
		if errors.Is(err, playback.ErrClosed) {
			return nil, toConnectError(err)
		}
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	return connect.NewResponse(&playerv1.LoadTracksResponse{
		Count: cat.Len(),
		State: s.state(),
	}), nil
}

// GeneratePlaylist builds a playlist for a mood and loads it.
func (s *PlayerService) GeneratePlaylist(
	ctx context.Context,
	req *connect.Request[playerv1.GeneratePlaylistRequest],
) (*connect.Response[playerv1.GeneratePlaylistResponse], error) {
	pl, err := s.player.Generate(ctx, playlist.Request{
		Mood:          req.Msg.Mood,
		Genres:        req.Msg.Genres,
		Count:         req.Msg.Count,
		AvoidExplicit: req.Msg.AvoidExplicit,
	})
	if err != nil {
		zlog.Warn().Msgf("api: generate playlist failed: mood=%q error=%v", req.Msg.Mood, err)
		return nil, toConnectError(err)
	}

	state := s.state()
	return connect.NewResponse(&playerv1.GeneratePlaylistResponse{
		Name:        pl.Name,
		Description: pl.Description,
		Tracks:      state.Catalog,
		State:       state,
	}), nil
}

// Subscribe streams the current state followed by every notification.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[playerv1.SubscribeRequest],
	stream *connect.ServerStream[playerv1.Notification],
) error {
	// Subscribe before taking the snapshot so nothing between the two is lost.
	// Clients drop notifications numbered below the initial state.
	notifManager := s.player.GetNotificationManager()
	sub := notifManager.Subscribe(subscriptionBuffer)
	defer notifManager.Unsubscribe(sub.ID)

	initial := &playerv1.Notification{
		SequenceNo: notifManager.NextSequenceNo(),
		Type:       InitialStateType,
		State:      s.state(),
	}
	if err := stream.Send(initial); err != nil {
		return err
	}
	zlog.Debug().Msgf("api: subscriber connected: id=%s", sub.ID)

	for {
		select {
		case <-ctx.Done():
			zlog.Debug().Msgf("api: subscriber disconnected: id=%s dropped=%d", sub.ID, sub.Dropped())
			return nil
		case <-s.player.Done():
			return nil
		case n, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := stream.Send(s.toNotification(n)); err != nil {
				return err
			}
		}
	}
}

func (s *PlayerService) control(err error) (*connect.Response[playerv1.ControlResponse], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.ControlResponse{State: s.state()}), nil
}

func (s *PlayerService) state() *playerv1.PlayerState {
	return toPlayerState(s.player.View(), s.player.Playlist())
}

func (s *PlayerService) toNotification(n *notification.Notification) *playerv1.Notification {
	return &playerv1.Notification{
		SequenceNo: n.SequenceNo,
		Type:       n.Type,
		Message:    n.Message,
		State:      toPlayerState(n.View, s.player.Playlist()),
	}
}

// toPlayerState converts a view to its wire form. pl may be nil.
func toPlayerState(v playback.View, pl *playlist.Playlist) *playerv1.PlayerState {
	state := &playerv1.PlayerState{
		TrackID:         v.TrackID,
		Title:           v.Title,
		Artist:          v.Artist,
		Index:           v.Index,
		Transport:       v.State.String(),
		Pending:         v.Pending,
		ElapsedSeconds:  v.Elapsed,
		DurationSeconds: v.Duration,
		DurationKnown:   v.DurationKnown,
		ElapsedText:     v.ElapsedText,
		DurationText:    v.DurationText,
		Progress:        v.Progress,
		Volume:          v.Volume,
		SourceURL:       v.SourceURL,
		Catalog:         make([]playerv1.Track, len(v.Catalog)),
	}
	for i, e := range v.Catalog {
		state.Catalog[i] = playerv1.Track{
			ID:        e.Track.ID,
			Title:     e.Track.Title,
			Artist:    e.Track.Artist,
			SourceURL: e.Track.SourceURL,
			Current:   e.Current,
		}
	}
	if pl != nil {
		state.PlaylistName = pl.Name
		state.PlaylistDescription = pl.Description
	}
	return state
}
