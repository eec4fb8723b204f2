package ddnsd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"
	"go.uber.org/zap"
)

const (
	dnspodEndpoint    = "dnspod.tencentcloudapi.com"
	dnspodDefaultLine = "默认"
)

// DNSPodAPI is the subset of *dnspod.Client used by the DNSPod provider.
type DNSPodAPI interface {
	DescribeRecord(*dnspod.DescribeRecordRequest) (*dnspod.DescribeRecordResponse, error)
	ModifyRecord(*dnspod.ModifyRecordRequest) (*dnspod.ModifyRecordResponse, error)
}

// NewDNSPod returns a Provider backed by the Tencent Cloud DNSPod API.
// Target.Zone is the domain and Target.ID the numeric record ID.
func NewDNSPod(secretID, secretKey string) (Provider, error) {
	if secretID == "" || secretKey == "" {
		return nil, errors.New("missing dnspod credentials")
	}
	cred := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = dnspodEndpoint
	sdk, err := dnspod.NewClient(cred, "", cpf)
	if err != nil {
		return nil, fmt.Errorf("create dnspod client: %w", err)
	}
	return NewDNSPodWithClient(sdk), nil
}

// NewDNSPodWithClient is NewDNSPod with a caller-supplied client.
func NewDNSPodWithClient(client DNSPodAPI) Provider {
	return &dnspodProvider{client: client, logger: zap.NewNop()}
}

type dnspodProvider struct {
	client DNSPodAPI
	logger *zap.Logger
}

func (p *dnspodProvider) SetLogger(l *zap.Logger) { p.logger = l.Named("dnspod") }

func (p *dnspodProvider) Read(ctx context.Context, t Target) (string, error) {
	info, err := p.describe(ctx, t)
	if err != nil {
		return "", err
	}
	if info.Value == nil {
		return "", &ProviderError{Op: "describe dnspod record", Err: fmt.Errorf("record %s has no value", t.ID)}
	}
	p.logger.Debug("read record", zap.String("domain", t.Zone), zap.String("id", t.ID), zap.String("value", *info.Value))
	return *info.Value, nil
}

// Write keeps the sub-domain, line and TTL of the stored record unless the Target overrides them.
func (p *dnspodProvider) Write(ctx context.Context, t Target, addr string) error {
	id, err := dnspodRecordID(t)
	if err != nil {
		return err
	}
	info, err := p.describe(ctx, t)
	if err != nil {
		return err
	}

	req := dnspod.NewModifyRecordRequest()
	req.Domain = common.StringPtr(t.Zone)
	req.RecordId = common.Uint64Ptr(id)
	req.SubDomain = common.StringPtr(stringOr(info.SubDomain, t.Name))
	req.RecordType = common.StringPtr(stringOr(info.RecordType, t.Type))
	req.RecordLine = common.StringPtr(stringOr(info.RecordLine, dnspodDefaultLine))
	req.Value = common.StringPtr(addr)
	switch {
	case t.TTL > 0:
		req.TTL = common.Uint64Ptr(uint64(t.TTL))
	case info.TTL != nil:
		req.TTL = common.Uint64Ptr(*info.TTL)
	}
	req.SetContext(ctx)

	p.logger.Debug("modifying record", zap.String("domain", t.Zone), zap.Uint64("id", id), zap.String("value", addr))
	if _, err := p.client.ModifyRecord(req); err != nil {
		return dnspodError("modify dnspod record", err)
	}
	return nil
}

func (p *dnspodProvider) describe(ctx context.Context, t Target) (*dnspod.RecordInfo, error) {
	id, err := dnspodRecordID(t)
	if err != nil {
		return nil, err
	}
	req := dnspod.NewDescribeRecordRequest()
	req.Domain = common.StringPtr(t.Zone)
	req.RecordId = common.Uint64Ptr(id)
	req.SetContext(ctx)

	resp, err := p.client.DescribeRecord(req)
	if err != nil {
		return nil, dnspodError("describe dnspod record", err)
	}
	if resp == nil || resp.Response == nil || resp.Response.RecordInfo == nil {
		return nil, &ProviderError{Op: "describe dnspod record", Err: fmt.Errorf("record %s: %w", t.ID, ErrRecordNotFound)}
	}
	return resp.Response.RecordInfo, nil
}

func dnspodRecordID(t Target) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(t.ID), 10, 64)
	if err != nil {
		return 0, &ProviderError{Op: "dnspod record id", Err: fmt.Errorf("invalid record id %q: %w", t.ID, err)}
	}
	return id, nil
}

func dnspodError(op string, err error) error {
	var sdkErr *sdkerrors.TencentCloudSDKError
	if errors.As(err, &sdkErr) {
		if sdkErr.Code == "ClientError.NetworkError" {
			return &NetworkError{Op: op, Err: err}
		}
		return &ProviderError{Op: op, Body: fmt.Sprintf("[%s] %s", sdkErr.Code, sdkErr.Message), Err: err}
	}
	return classify(op, err)
}

func stringOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
