// Package playerv1connect wires the vibechef.player.v1 messages to Connect handlers and clients.
package playerv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	playerv1 "github.com/osa030/vibechef/internal/api/playerv1"
)

// PlayerServiceName is the fully-qualified name of the PlayerService service.
const PlayerServiceName = "vibechef.player.v1.PlayerService"

// Procedure names of PlayerService RPCs.
const (
	PlayerServiceGetStateProcedure         = "/vibechef.player.v1.PlayerService/GetState"
	PlayerServiceTogglePlayPauseProcedure  = "/vibechef.player.v1.PlayerService/TogglePlayPause"
	PlayerServiceNextProcedure             = "/vibechef.player.v1.PlayerService/Next"
	PlayerServicePreviousProcedure         = "/vibechef.player.v1.PlayerService/Previous"
	PlayerServiceSelectTrackProcedure      = "/vibechef.player.v1.PlayerService/SelectTrack"
	PlayerServiceSeekProcedure             = "/vibechef.player.v1.PlayerService/Seek"
	PlayerServiceSetVolumeProcedure        = "/vibechef.player.v1.PlayerService/SetVolume"
	PlayerServiceLoadTracksProcedure       = "/vibechef.player.v1.PlayerService/LoadTracks"
	PlayerServiceGeneratePlaylistProcedure = "/vibechef.player.v1.PlayerService/GeneratePlaylist"
	PlayerServiceSubscribeProcedure        = "/vibechef.player.v1.PlayerService/Subscribe"
)

// PlayerServiceClient is a client for the vibechef.player.v1.PlayerService service.
type PlayerServiceClient interface {
	GetState(context.Context, *connect.Request[playerv1.GetStateRequest]) (*connect.Response[playerv1.GetStateResponse], error)
	TogglePlayPause(context.Context, *connect.Request[playerv1.TogglePlayPauseRequest]) (*connect.Response[playerv1.ControlResponse], error)
	Next(context.Context, *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.ControlResponse], error)
	Previous(context.Context, *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.ControlResponse], error)
	SelectTrack(context.Context, *connect.Request[playerv1.SelectTrackRequest]) (*connect.Response[playerv1.ControlResponse], error)
	Seek(context.Context, *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.ControlResponse], error)
	SetVolume(context.Context, *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.ControlResponse], error)
	LoadTracks(context.Context, *connect.Request[playerv1.LoadTracksRequest]) (*connect.Response[playerv1.LoadTracksResponse], error)
	GeneratePlaylist(context.Context, *connect.Request[playerv1.GeneratePlaylistRequest]) (*connect.Response[playerv1.GeneratePlaylistResponse], error)
	Subscribe(context.Context, *connect.Request[playerv1.SubscribeRequest]) (*connect.ServerStreamForClient[playerv1.Notification], error)
}

// NewPlayerServiceClient constructs a client for the vibechef.player.v1.PlayerService
// service. Messages are always JSON encoded.
//
// The URL supplied here should be the base URL for the Connect server (for example,
// http://api.acme.com or https://acme.com/grpc).
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(playerv1.Codec{})}, opts...)
	return &playerServiceClient{
		getState:         connect.NewClient[playerv1.GetStateRequest, playerv1.GetStateResponse](httpClient, baseURL+PlayerServiceGetStateProcedure, opts...),
		togglePlayPause:  connect.NewClient[playerv1.TogglePlayPauseRequest, playerv1.ControlResponse](httpClient, baseURL+PlayerServiceTogglePlayPauseProcedure, opts...),
		next:             connect.NewClient[playerv1.NextRequest, playerv1.ControlResponse](httpClient, baseURL+PlayerServiceNextProcedure, opts...),
		previous:         connect.NewClient[playerv1.PreviousRequest, playerv1.ControlResponse](httpClient, baseURL+PlayerServicePreviousProcedure, opts...),
		selectTrack:      connect.NewClient[playerv1.SelectTrackRequest, playerv1.ControlResponse](httpClient, baseURL+PlayerServiceSelectTrackProcedure, opts...),
		seek:             connect.NewClient[playerv1.SeekRequest, playerv1.ControlResponse](httpClient, baseURL+PlayerServiceSeekProcedure, opts...),
		setVolume:        connect.NewClient[playerv1.SetVolumeRequest, playerv1.ControlResponse](httpClient, baseURL+PlayerServiceSetVolumeProcedure, opts...),
		loadTracks:       connect.NewClient[playerv1.LoadTracksRequest, playerv1.LoadTracksResponse](httpClient, baseURL+PlayerServiceLoadTracksProcedure, opts...),
		generatePlaylist: connect.NewClient[playerv1.GeneratePlaylistRequest, playerv1.GeneratePlaylistResponse](httpClient, baseURL+PlayerServiceGeneratePlaylistProcedure, opts...),
		subscribe:        connect.NewClient[playerv1.SubscribeRequest, playerv1.Notification](httpClient, baseURL+PlayerServiceSubscribeProcedure, opts...),
	}
}

// playerServiceClient implements PlayerServiceClient.
type playerServiceClient struct {
	getState         *connect.Client[playerv1.GetStateRequest, playerv1.GetStateResponse]
	togglePlayPause  *connect.Client[playerv1.TogglePlayPauseRequest, playerv1.ControlResponse]
	next             *connect.Client[playerv1.NextRequest, playerv1.ControlResponse]
	previous         *connect.Client[playerv1.PreviousRequest, playerv1.ControlResponse]
	selectTrack      *connect.Client[playerv1.SelectTrackRequest, playerv1.ControlResponse]
	seek             *connect.Client[playerv1.SeekRequest, playerv1.ControlResponse]
	setVolume        *connect.Client[playerv1.SetVolumeRequest, playerv1.ControlResponse]
	loadTracks       *connect.Client[playerv1.LoadTracksRequest, playerv1.LoadTracksResponse]
	generatePlaylist *connect.Client[playerv1.GeneratePlaylistRequest, playerv1.GeneratePlaylistResponse]
	subscribe        *connect.Client[playerv1.SubscribeRequest, playerv1.Notification]
}

func (c *playerServiceClient) GetState(ctx context.Context, req *connect.Request[playerv1.GetStateRequest]) (*connect.Response[playerv1.GetStateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

func (c *playerServiceClient) TogglePlayPause(ctx context.Context, req *connect.Request[playerv1.TogglePlayPauseRequest]) (*connect.Response[playerv1.ControlResponse], error) {
	return c.togglePlayPause.CallUnary(ctx, req)
}

func (c *playerServiceClient) Next(ctx context.Context, req *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.ControlResponse], error) {
	return c.next.CallUnary(ctx, req)
}

func (c *playerServiceClient) Previous(ctx context.Context, req *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.ControlResponse], error) {
	return c.previous.CallUnary(ctx, req)
}

func (c *playerServiceClient) SelectTrack(ctx context.Context, req *connect.Request[playerv1.SelectTrackRequest]) (*connect.Response[playerv1.ControlResponse], error) {
	return c.selectTrack.CallUnary(ctx, req)
}

func (c *playerServiceClient) Seek(ctx context.Context, req *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.ControlResponse], error) {
	return c.seek.CallUnary(ctx, req)
}

func (c *playerServiceClient) SetVolume(ctx context.Context, req *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.ControlResponse], error) {
	return c.setVolume.CallUnary(ctx, req)
}

func (c *playerServiceClient) LoadTracks(ctx context.Context, req *connect.Request[playerv1.LoadTracksRequest]) (*connect.Response[playerv1.LoadTracksResponse], error) {
	return c.loadTracks.CallUnary(ctx, req)
}

func (c *playerServiceClient) GeneratePlaylist(ctx context.Context, req *connect.Request[playerv1.GeneratePlaylistRequest]) (*connect.Response[playerv1.GeneratePlaylistResponse], error) {
	return c.generatePlaylist.CallUnary(ctx, req)
}

func (c *playerServiceClient) Subscribe(ctx context.Context, req *connect.Request[playerv1.SubscribeRequest]) (*connect.ServerStreamForClient[playerv1.Notification], error) {
	return c.subscribe.CallServerStream(ctx, req)
}

// PlayerServiceHandler is an implementation of the vibechef.player.v1.PlayerService service.
type PlayerServiceHandler interface {
	GetState(context.Context, *connect.Request[playerv1.GetStateRequest]) (*connect.Response[playerv1.GetStateResponse], error)
	TogglePlayPause(context.Context, *connect.Request[playerv1.TogglePlayPauseRequest]) (*connect.Response[playerv1.ControlResponse], error)
	Next(context.Context, *connect.Request[playerv1.NextRequest]) (*connect.Response[playerv1.ControlResponse], error)
	Previous(context.Context, *connect.Request[playerv1.PreviousRequest]) (*connect.Response[playerv1.ControlResponse], error)
	SelectTrack(context.Context, *connect.Request[playerv1.SelectTrackRequest]) (*connect.Response[playerv1.ControlResponse], error)
	Seek(context.Context, *connect.Request[playerv1.SeekRequest]) (*connect.Response[playerv1.ControlResponse], error)
	SetVolume(context.Context, *connect.Request[playerv1.SetVolumeRequest]) (*connect.Response[playerv1.ControlResponse], error)
	LoadTracks(context.Context, *connect.Request[playerv1.LoadTracksRequest]) (*connect.Response[playerv1.LoadTracksResponse], error)
	GeneratePlaylist(context.Context, *connect.Request[playerv1.GeneratePlaylistRequest]) (*connect.Response[playerv1.GeneratePlaylistResponse], error)
	Subscribe(context.Context, *connect.Request[playerv1.SubscribeRequest], *connect.ServerStream[playerv1.Notification]) error
}

// NewPlayerServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(playerv1.Codec{})}, opts...)

	getStateHandler := connect.NewUnaryHandler(PlayerServiceGetStateProcedure, svc.GetState, opts...)
	togglePlayPauseHandler := connect.NewUnaryHandler(PlayerServiceTogglePlayPauseProcedure, svc.TogglePlayPause, opts...)
	nextHandler := connect.NewUnaryHandler(PlayerServiceNextProcedure, svc.Next, opts...)
	previousHandler := connect.NewUnaryHandler(PlayerServicePreviousProcedure, svc.Previous, opts...)
	selectTrackHandler := connect.NewUnaryHandler(PlayerServiceSelectTrackProcedure, svc.SelectTrack, opts...)
	seekHandler := connect.NewUnaryHandler(PlayerServiceSeekProcedure, svc.Seek, opts...)
	setVolumeHandler := connect.NewUnaryHandler(PlayerServiceSetVolumeProcedure, svc.SetVolume, opts...)
	loadTracksHandler := connect.NewUnaryHandler(PlayerServiceLoadTracksProcedure, svc.LoadTracks, opts...)
	generatePlaylistHandler := connect.NewUnaryHandler(PlayerServiceGeneratePlaylistProcedure, svc.GeneratePlaylist, opts...)
	subscribeHandler := connect.NewServerStreamHandler(PlayerServiceSubscribeProcedure, svc.Subscribe, opts...)

	return "/" + PlayerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PlayerServiceGetStateProcedure:
			getStateHandler.ServeHTTP(w, r)
		case PlayerServiceTogglePlayPauseProcedure:
			togglePlayPauseHandler.ServeHTTP(w, r)
		case PlayerServiceNextProcedure:
			nextHandler.ServeHTTP(w, r)
		case PlayerServicePreviousProcedure:
			previousHandler.ServeHTTP(w, r)
		case PlayerServiceSelectTrackProcedure:
			selectTrackHandler.ServeHTTP(w, r)
		case PlayerServiceSeekProcedure:
			seekHandler.ServeHTTP(w, r)
		case PlayerServiceSetVolumeProcedure:
			setVolumeHandler.ServeHTTP(w, r)
		case PlayerServiceLoadTracksProcedure:
			loadTracksHandler.ServeHTTP(w, r)
		case PlayerServiceGeneratePlaylistProcedure:
			generatePlaylistHandler.ServeHTTP(w, r)
		case PlayerServiceSubscribeProcedure:
			subscribeHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
