package referral

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

const serviceName = "talktodoc.referral.Referral"

// jsonCodec carries RPC messages as JSON. The referral surface has no
// generated protobuf types; requests and responses are plain structs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type GetUserRequest struct {
	UserID string `json:"userId"`
}

type ApplyReferralRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

type GetLeaderboardRequest struct {
	Limit int64 `json:"limit"`
}

type GetLeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// ReferralServer is the RPC surface exposed on the gRPC listener.
type ReferralServer interface {
	GetUser(ctx context.Context, req *GetUserRequest) (*User, error)
	ApplyReferral(ctx context.Context, req *ApplyReferralRequest) (*User, error)
	GetLeaderboard(ctx context.Context, req *GetLeaderboardRequest) (*GetLeaderboardResponse, error)
}

type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

func (s *Server) GetUser(ctx context.Context, req *GetUserRequest) (*User, error) {
	user, err := s.service.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &user, nil
}

func (s *Server) ApplyReferral(ctx context.Context, req *ApplyReferralRequest) (*User, error) {
	user, err := s.service.ApplyReferral(ctx, req.UserID, req.Code)
	if err != nil {
		return nil, rpcError(err)
	}
	return &user, nil
}

func (s *Server) GetLeaderboard(ctx context.Context, req *GetLeaderboardRequest) (*GetLeaderboardResponse, error) {
	entries, err := s.service.GetLeaderboard(ctx, req.Limit)
	if err != nil {
		return nil, rpcError(err)
	}
	return &GetLeaderboardResponse{Entries: entries}, nil
}

func rpcError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUnknownCode):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrAlreadyReferred):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrSelfReferral):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func unaryHandler[Req any, Res any](
	fullMethod string,
	call func(ctx context.Context, srv ReferralServer, req *Req) (*Res, error),
) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, srv.(ReferralServer), in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ctx, srv.(ReferralServer), req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is registered by hand; there is no generated code behind the
// referral service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ReferralServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetUser",
			Handler: unaryHandler("/"+serviceName+"/GetUser",
				func(ctx context.Context, srv ReferralServer, req *GetUserRequest) (*User, error) {
					return srv.GetUser(ctx, req)
				}),
		},
		{
			MethodName: "ApplyReferral",
			Handler: unaryHandler("/"+serviceName+"/ApplyReferral",
				func(ctx context.Context, srv ReferralServer, req *ApplyReferralRequest) (*User, error) {
					return srv.ApplyReferral(ctx, req)
				}),
		},
		{
			MethodName: "GetLeaderboard",
			Handler: unaryHandler("/"+serviceName+"/GetLeaderboard",
				func(ctx context.Context, srv ReferralServer, req *GetLeaderboardRequest) (*GetLeaderboardResponse, error) {
					return srv.GetLeaderboard(ctx, req)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "referral",
}

// NewGRPCServer builds a gRPC server speaking the JSON codec with the
// referral service registered.
func NewGRPCServer(service *Service) *grpc.Server {
	srv := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	srv.RegisterService(&ServiceDesc, NewServer(service))
	return srv
}
