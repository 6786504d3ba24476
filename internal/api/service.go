package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "zkkeeper.v1.KeeperService"

// Full method names, used by interceptors.
const (
	MethodRegister  = "/" + ServiceName + "/Register"
	MethodChallenge = "/" + ServiceName + "/Challenge"
	MethodVerify    = "/" + ServiceName + "/Verify"
	MethodBackup    = "/" + ServiceName + "/Backup"
	MethodGetVault  = "/" + ServiceName + "/GetVault"
	MethodPutVault  = "/" + ServiceName + "/PutVault"
	MethodLogout    = "/" + ServiceName + "/Logout"
	MethodPing      = "/" + ServiceName + "/Ping"
)

// KeeperServiceServer is implemented by the server's gRPC layer.
type KeeperServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Challenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error)
	Verify(context.Context, *VerifyRequest) (*VerifyResponse, error)
	Backup(context.Context, *BackupRequest) (*BackupResponse, error)
	GetVault(context.Context, *GetVaultRequest) (*GetVaultResponse, error)
	PutVault(context.Context, *PutVaultRequest) (*PutVaultResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// UnimplementedKeeperServiceServer can be embedded for forward compatibility.
type UnimplementedKeeperServiceServer struct{}

func (UnimplementedKeeperServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedKeeperServiceServer) Challenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Challenge not implemented")
}
func (UnimplementedKeeperServiceServer) Verify(context.Context, *VerifyRequest) (*VerifyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Verify not implemented")
}
func (UnimplementedKeeperServiceServer) Backup(context.Context, *BackupRequest) (*BackupResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Backup not implemented")
}
func (UnimplementedKeeperServiceServer) GetVault(context.Context, *GetVaultRequest) (*GetVaultResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetVault not implemented")
}
func (UnimplementedKeeperServiceServer) PutVault(context.Context, *PutVaultRequest) (*PutVaultResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PutVault not implemented")
}
func (UnimplementedKeeperServiceServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedKeeperServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func RegisterKeeperServiceServer(s grpc.ServiceRegistrar, srv KeeperServiceServer) {
	s.RegisterService(&KeeperServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodHandler.
func unaryHandler[Req any, Resp any](fullMethod string, call func(KeeperServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KeeperServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(KeeperServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var KeeperServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KeeperServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(MethodRegister, KeeperServiceServer.Register)},
		{MethodName: "Challenge", Handler: unaryHandler(MethodChallenge, KeeperServiceServer.Challenge)},
		{MethodName: "Verify", Handler: unaryHandler(MethodVerify, KeeperServiceServer.Verify)},
		{MethodName: "Backup", Handler: unaryHandler(MethodBackup, KeeperServiceServer.Backup)},
		{MethodName: "GetVault", Handler: unaryHandler(MethodGetVault, KeeperServiceServer.GetVault)},
		{MethodName: "PutVault", Handler: unaryHandler(MethodPutVault, KeeperServiceServer.PutVault)},
		{MethodName: "Logout", Handler: unaryHandler(MethodLogout, KeeperServiceServer.Logout)},
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, KeeperServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "zkkeeper/v1/keeper",
}

// KeeperServiceClient is the typed client for KeeperService.
type KeeperServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Challenge(ctx context.Context, in *ChallengeRequest, opts ...grpc.CallOption) (*ChallengeResponse, error)
	Verify(ctx context.Context, in *VerifyRequest, opts ...grpc.CallOption) (*VerifyResponse, error)
	Backup(ctx context.Context, in *BackupRequest, opts ...grpc.CallOption) (*BackupResponse, error)
	GetVault(ctx context.Context, in *GetVaultRequest, opts ...grpc.CallOption) (*GetVaultResponse, error)
	PutVault(ctx context.Context, in *PutVaultRequest, opts ...grpc.CallOption) (*PutVaultResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type keeperServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewKeeperServiceClient(cc grpc.ClientConnInterface) KeeperServiceClient {
	return &keeperServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *keeperServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *keeperServiceClient) Challenge(ctx context.Context, in *ChallengeRequest, opts ...grpc.CallOption) (*ChallengeResponse, error) {
	return invoke[ChallengeResponse](ctx, c.cc, MethodChallenge, in, opts)
}

func (c *keeperServiceClient) Verify(ctx context.Context, in *VerifyRequest, opts ...grpc.CallOption) (*VerifyResponse, error) {
	return invoke[VerifyResponse](ctx, c.cc, MethodVerify, in, opts)
}

func (c *keeperServiceClient) Backup(ctx context.Context, in *BackupRequest, opts ...grpc.CallOption) (*BackupResponse, error) {
	return invoke[BackupResponse](ctx, c.cc, MethodBackup, in, opts)
}

func (c *keeperServiceClient) GetVault(ctx context.Context, in *GetVaultRequest, opts ...grpc.CallOption) (*GetVaultResponse, error) {
	return invoke[GetVaultResponse](ctx, c.cc, MethodGetVault, in, opts)
}

func (c *keeperServiceClient) PutVault(ctx context.Context, in *PutVaultRequest, opts ...grpc.CallOption) (*PutVaultResponse, error) {
	return invoke[PutVaultResponse](ctx, c.cc, MethodPutVault, in, opts)
}

func (c *keeperServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, MethodLogout, in, opts)
}

func (c *keeperServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}
