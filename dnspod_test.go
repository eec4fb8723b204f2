package ddnsd_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"

	"github.com/Travis-Britz/ddnsd"
)

type mockDNSPodClient struct {
	info        *dnspod.RecordInfo
	describeErr error
	modifyErr   error

	describeCalls []*dnspod.DescribeRecordRequest
	modifyCalls   []*dnspod.ModifyRecordRequest
}

func (m *mockDNSPodClient) DescribeRecord(req *dnspod.DescribeRecordRequest) (*dnspod.DescribeRecordResponse, error) {
	m.describeCalls = append(m.describeCalls, req)
	if m.describeErr != nil {
		return nil, m.describeErr
	}
	resp := dnspod.NewDescribeRecordResponse()
	resp.Response = &dnspod.DescribeRecordResponseParams{RecordInfo: m.info}
	return resp, nil
}

func (m *mockDNSPodClient) ModifyRecord(req *dnspod.ModifyRecordRequest) (*dnspod.ModifyRecordResponse, error) {
	m.modifyCalls = append(m.modifyCalls, req)
	if m.modifyErr != nil {
		return nil, m.modifyErr
	}
	return dnspod.NewModifyRecordResponse(), nil
}

var dnspodTarget = ddnsd.Target{Zone: "example.com", ID: "12345", Name: "home", Type: "A"}

func storedRecord() *dnspod.RecordInfo {
	return &dnspod.RecordInfo{
		Id:         common.Uint64Ptr(12345),
		SubDomain:  common.StringPtr("home"),
		RecordType: common.StringPtr("A"),
		RecordLine: common.StringPtr("电信"),
		Value:      common.StringPtr("198.51.100.1"),
		TTL:        common.Uint64Ptr(600),
	}
}

func TestDNSPodRead(t *testing.T) {
	m := &mockDNSPodClient{info: storedRecord()}
	got, err := ddnsd.NewDNSPodWithClient(m).Read(context.Background(), dnspodTarget)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1", got)

	require.Len(t, m.describeCalls, 1)
	assert.Equal(t, "example.com", *m.describeCalls[0].Domain)
	assert.Equal(t, uint64(12345), *m.describeCalls[0].RecordId)
}

func TestDNSPodReadMissing(t *testing.T) {
	_, err := ddnsd.NewDNSPodWithClient(&mockDNSPodClient{}).Read(context.Background(), dnspodTarget)
	assert.ErrorIs(t, err, ddnsd.ErrRecordNotFound)
}

func TestDNSPodInvalidID(t *testing.T) {
	m := &mockDNSPodClient{info: storedRecord()}
	_, err := ddnsd.NewDNSPodWithClient(m).Read(context.Background(), ddnsd.Target{Zone: "example.com", ID: "www"})
	var pe *ddnsd.ProviderError
	assert.True(t, errors.As(err, &pe), "expected *ProviderError; got %T", err)
	assert.Empty(t, m.describeCalls)
}

func TestDNSPodWritePreservesLineAndTTL(t *testing.T) {
	m := &mockDNSPodClient{info: storedRecord()}
	err := ddnsd.NewDNSPodWithClient(m).Write(context.Background(), dnspodTarget, "203.0.113.9")
	require.NoError(t, err)

	require.Len(t, m.modifyCalls, 1)
	req := m.modifyCalls[0]
	assert.Equal(t, "203.0.113.9", *req.Value)
	assert.Equal(t, "home", *req.SubDomain)
	assert.Equal(t, "A", *req.RecordType)
	assert.Equal(t, "电信", *req.RecordLine)
	assert.Equal(t, uint64(600), *req.TTL)
}

func TestDNSPodWriteSDKError(t *testing.T) {
	m := &mockDNSPodClient{
		info:      storedRecord(),
		modifyErr: sdkerrors.NewTencentCloudSDKError("AuthFailure", "signature expired", "req-1"),
	}
	err := ddnsd.NewDNSPodWithClient(m).Write(context.Background(), dnspodTarget, "203.0.113.9")
	var pe *ddnsd.ProviderError
	require.True(t, errors.As(err, &pe), "expected *ProviderError; got %T", err)
	assert.Equal(t, "[AuthFailure] signature expired", pe.Body)
}
