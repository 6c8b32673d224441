package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/pkg/api"
)

// TripServiceName is the fully-qualified name of the TripService.
const TripServiceName = "tripsplit.v1.TripService"

const (
	TripServiceCreateTripProcedure   = "/tripsplit.v1.TripService/CreateTrip"
	TripServiceGetTripProcedure      = "/tripsplit.v1.TripService/GetTrip"
	TripServiceListTripsProcedure    = "/tripsplit.v1.TripService/ListTrips"
	TripServiceUpdateTripProcedure   = "/tripsplit.v1.TripService/UpdateTrip"
	TripServiceDeleteTripProcedure   = "/tripsplit.v1.TripService/DeleteTrip"
	TripServiceAddMembersProcedure   = "/tripsplit.v1.TripService/AddMembers"
	TripServiceRemoveMemberProcedure = "/tripsplit.v1.TripService/RemoveMember"
	TripServiceGetTripDebtsProcedure = "/tripsplit.v1.TripService/GetTripDebts"
)

// TripServiceHandler is implemented by the server side of the TripService.
type TripServiceHandler interface {
	CreateTrip(context.Context, *connect.Request[api.CreateTripRequest]) (*connect.Response[api.CreateTripResponse], error)
	GetTrip(context.Context, *connect.Request[api.GetTripRequest]) (*connect.Response[api.GetTripResponse], error)
	ListTrips(context.Context, *connect.Request[api.ListTripsRequest]) (*connect.Response[api.ListTripsResponse], error)
	UpdateTrip(context.Context, *connect.Request[api.UpdateTripRequest]) (*connect.Response[api.UpdateTripResponse], error)
	DeleteTrip(context.Context, *connect.Request[api.DeleteTripRequest]) (*connect.Response[api.DeleteTripResponse], error)
	AddMembers(context.Context, *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error)
	GetTripDebts(context.Context, *connect.Request[api.GetTripDebtsRequest]) (*connect.Response[api.GetTripDebtsResponse], error)
}

// NewTripServiceHandler builds an HTTP handler for the TripService and returns the
// path prefix it should be mounted on.
func NewTripServiceHandler(svc TripServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(TripServiceCreateTripProcedure, connect.NewUnaryHandler(TripServiceCreateTripProcedure, svc.CreateTrip, opts...))
	mux.Handle(TripServiceGetTripProcedure, connect.NewUnaryHandler(TripServiceGetTripProcedure, svc.GetTrip, opts...))
	mux.Handle(TripServiceListTripsProcedure, connect.NewUnaryHandler(TripServiceListTripsProcedure, svc.ListTrips, opts...))
	mux.Handle(TripServiceUpdateTripProcedure, connect.NewUnaryHandler(TripServiceUpdateTripProcedure, svc.UpdateTrip, opts...))
	mux.Handle(TripServiceDeleteTripProcedure, connect.NewUnaryHandler(TripServiceDeleteTripProcedure, svc.DeleteTrip, opts...))
	mux.Handle(TripServiceAddMembersProcedure, connect.NewUnaryHandler(TripServiceAddMembersProcedure, svc.AddMembers, opts...))
	mux.Handle(TripServiceRemoveMemberProcedure, connect.NewUnaryHandler(TripServiceRemoveMemberProcedure, svc.RemoveMember, opts...))
	mux.Handle(TripServiceGetTripDebtsProcedure, connect.NewUnaryHandler(TripServiceGetTripDebtsProcedure, svc.GetTripDebts, opts...))
	return "/" + TripServiceName + "/", mux
}

// TripServiceClient is a client for the TripService.
type TripServiceClient interface {
	TripServiceHandler
}

type tripServiceClient struct {
	createTrip   *connect.Client[api.CreateTripRequest, api.CreateTripResponse]
	getTrip      *connect.Client[api.GetTripRequest, api.GetTripResponse]
	listTrips    *connect.Client[api.ListTripsRequest, api.ListTripsResponse]
	updateTrip   *connect.Client[api.UpdateTripRequest, api.UpdateTripResponse]
	deleteTrip   *connect.Client[api.DeleteTripRequest, api.DeleteTripResponse]
	addMembers   *connect.Client[api.AddMembersRequest, api.AddMembersResponse]
	removeMember *connect.Client[api.RemoveMemberRequest, api.RemoveMemberResponse]
	getTripDebts *connect.Client[api.GetTripDebtsRequest, api.GetTripDebtsResponse]
}

// NewTripServiceClient constructs a client for the TripService served at baseURL.
func NewTripServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) TripServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &tripServiceClient{
		createTrip:   connect.NewClient[api.CreateTripRequest, api.CreateTripResponse](httpClient, baseURL+TripServiceCreateTripProcedure, opts...),
		getTrip:      connect.NewClient[api.GetTripRequest, api.GetTripResponse](httpClient, baseURL+TripServiceGetTripProcedure, opts...),
		listTrips:    connect.NewClient[api.ListTripsRequest, api.ListTripsResponse](httpClient, baseURL+TripServiceListTripsProcedure, opts...),
		updateTrip:   connect.NewClient[api.UpdateTripRequest, api.UpdateTripResponse](httpClient, baseURL+TripServiceUpdateTripProcedure, opts...),
		deleteTrip:   connect.NewClient[api.DeleteTripRequest, api.DeleteTripResponse](httpClient, baseURL+TripServiceDeleteTripProcedure, opts...),
		addMembers:   connect.NewClient[api.AddMembersRequest, api.AddMembersResponse](httpClient, baseURL+TripServiceAddMembersProcedure, opts...),
		removeMember: connect.NewClient[api.RemoveMemberRequest, api.RemoveMemberResponse](httpClient, baseURL+TripServiceRemoveMemberProcedure, opts...),
		getTripDebts: connect.NewClient[api.GetTripDebtsRequest, api.GetTripDebtsResponse](httpClient, baseURL+TripServiceGetTripDebtsProcedure, opts...),
	}
}

func (c *tripServiceClient) CreateTrip(ctx context.Context, req *connect.Request[api.CreateTripRequest]) (*connect.Response[api.CreateTripResponse], error) {
	return c.createTrip.CallUnary(ctx, req)
}

func (c *tripServiceClient) GetTrip(ctx context.Context, req *connect.Request[api.GetTripRequest]) (*connect.Response[api.GetTripResponse], error) {
	return c.getTrip.CallUnary(ctx, req)
}

func (c *tripServiceClient) ListTrips(ctx context.Context, req *connect.Request[api.ListTripsRequest]) (*connect.Response[api.ListTripsResponse], error) {
	return c.listTrips.CallUnary(ctx, req)
}

func (c *tripServiceClient) UpdateTrip(ctx context.Context, req *connect.Request[api.UpdateTripRequest]) (*connect.Response[api.UpdateTripResponse], error) {
	return c.updateTrip.CallUnary(ctx, req)
}

func (c *tripServiceClient) DeleteTrip(ctx context.Context, req *connect.Request[api.DeleteTripRequest]) (*connect.Response[api.DeleteTripResponse], error) {
	return c.deleteTrip.CallUnary(ctx, req)
}

func (c *tripServiceClient) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *tripServiceClient) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *tripServiceClient) GetTripDebts(ctx context.Context, req *connect.Request[api.GetTripDebtsRequest]) (*connect.Response[api.GetTripDebtsResponse], error) {
	return c.getTripDebts.CallUnary(ctx, req)
}
