// Package admin serves read and close operations on live rooms as a Connect
// RPC service. Messages are protobuf well-known types, so no generated code
// is needed.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/auctionroom/go/internal/auction/persistence"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const RoomAdminServiceName = "auction.v1.RoomAdminService"

const (
	ListRoomsProcedure = "/" + RoomAdminServiceName + "/ListRooms"
	GetRoomProcedure   = "/" + RoomAdminServiceName + "/GetRoom"
	CloseRoomProcedure = "/" + RoomAdminServiceName + "/CloseRoom"

	GetResultsProcedure = "/" + RoomAdminServiceName + "/GetResults"
)

// ResultsSource serves the standings of rooms that are no longer live,
// e.g. persistence.SnapshotCache
type ResultsSource interface {
	Results(ctx context.Context, roomCode string) ([]scoring.TeamResult, error)
}

// Service implements the room admin RPCs
type Service struct {
	manager *room.Manager
	results ResultsSource
}

// NewService creates a new room admin service. results may be nil.
func NewService(manager *room.Manager, results ResultsSource) *Service {
	return &Service{manager: manager, results: results}
}

// ListRooms returns a summary of every live room
func (s *Service) ListRooms(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	out, err := toStruct(map[string]any{"rooms": s.manager.List(ctx)})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// GetRoom returns the full snapshot of one room
func (s *Service) GetRoom(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	code, err := roomCode(req.Msg)
	if err != nil {
		return nil, err
	}

	r, err := s.manager.Get(code)
	if err != nil {
		return nil, toConnectError(err)
	}
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	out, err := toStruct(snap)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// GetResults returns the final standings of a completed room
func (s *Service) GetResults(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	code, err := roomCode(req.Msg)
	if err != nil {
		return nil, err
	}

	code = room.NormalizeCode(code)
	results, err := s.roomResults(ctx, code)
	if err != nil {
		return nil, toConnectError(err)
	}

	out, err := toStruct(map[string]any{"code": code, "results": results})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// roomResults asks the live room first, then the results source
func (s *Service) roomResults(ctx context.Context, code string) ([]scoring.TeamResult, error) {
	r, err := s.manager.Get(code)
	if err == nil {
		results, err := r.Results(ctx)
		if !errors.Is(err, room.ErrRoomClosed) {
			return results, err
		}
	}
	if s.results == nil {
		return nil, room.ErrRoomNotFound
	}
	return s.results.Results(ctx, code)
}

// CloseRoom tells the room's participants it is closing, stops it and drops
// it from the registry. An optional "reason" field is passed on to them.
func (s *Service) CloseRoom(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	code, err := roomCode(req.Msg)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Msg.GetFields()["reason"].GetStringValue())
	if reason == "" {
		reason = "room closed by an administrator"
	}
	if err := s.manager.Close(ctx, code, reason); err != nil {
		return nil, toConnectError(err)
	}

	log.Info().Str("room_code", room.NormalizeCode(code)).Msg("room closed by admin")
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// NewRoomAdminServiceHandler builds an HTTP handler for svc, returning the
// path to mount it on
func NewRoomAdminServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	listRooms := connect.NewUnaryHandler(ListRoomsProcedure, svc.ListRooms, opts...)
	getRoom := connect.NewUnaryHandler(GetRoomProcedure, svc.GetRoom, opts...)
	closeRoom := connect.NewUnaryHandler(CloseRoomProcedure, svc.CloseRoom, opts...)
	getResults := connect.NewUnaryHandler(GetResultsProcedure, svc.GetResults, opts...)

	return "/" + RoomAdminServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ListRoomsProcedure:
			listRooms.ServeHTTP(w, r)
		case GetRoomProcedure:
			getRoom.ServeHTTP(w, r)
		case CloseRoomProcedure:
			closeRoom.ServeHTTP(w, r)
		case GetResultsProcedure:
			getResults.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func roomCode(msg *structpb.Struct) (string, error) {
	code := strings.TrimSpace(msg.GetFields()["code"].GetStringValue())
	if code == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, errors.New("code is required"))
	}
	return code, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, persistence.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, room.ErrRoomClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, room.ErrWrongPhase):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// toStruct converts v through its JSON form so the wire shape matches the
// WebSocket and REST payloads
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(fields)
}
