// Package api defines the request and response messages of the tripsplit RPC API.
//
// Messages travel as JSON over Connect (see package apiconnect). Monetary amounts are
// decimal numbers with two fractional digits; ids are opaque strings.
package api
