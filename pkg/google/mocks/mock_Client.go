// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/sells-group/lead-harvest/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// SearchPlaces provides a mock function with given fields: ctx, req
func (_m *MockClient) SearchPlaces(ctx context.Context, req google.SearchRequest) (*google.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for SearchPlaces")
	}

	var r0 *google.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, google.SearchRequest) (*google.SearchResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.SearchResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// GetPlace provides a mock function with given fields: ctx, id
func (_m *MockClient) GetPlace(ctx context.Context, id string) (*google.Place, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetPlace")
	}

	var r0 *google.Place
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*google.Place, error)); ok {
		return rf(ctx, id)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.Place)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
