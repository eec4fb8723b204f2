package ddnsd

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"go.uber.org/zap"
)

// Route53DefaultTTL is used when a Target has no TTL.
const Route53DefaultTTL = 300

// Route53API is the subset of *route53.Client used by the Route 53 provider.
type Route53API interface {
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// NewRoute53 returns a Provider backed by Amazon Route 53 using the default AWS credential chain.
// Target.Zone is the hosted zone ID and records are located by Target.Name and Target.Type.
func NewRoute53(ctx context.Context) (Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get default AWS config: %w", err)
	}
	return NewRoute53WithClient(route53.NewFromConfig(cfg)), nil
}

// NewRoute53WithClient is NewRoute53 with a caller-supplied client.
func NewRoute53WithClient(client Route53API) Provider {
	return &route53Provider{client: client, logger: zap.NewNop()}
}

type route53Provider struct {
	client Route53API
	logger *zap.Logger
}

func (p *route53Provider) SetLogger(l *zap.Logger) { p.logger = l.Named("route53") }

func (p *route53Provider) Read(ctx context.Context, t Target) (string, error) {
	name := fqdn(t.Name)
	out, err := p.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(t.Zone),
		StartRecordName: aws.String(name),
		StartRecordType: types.RRType(t.Type),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return "", classify("list route53 records", err)
	}
	for _, rrs := range out.ResourceRecordSets {
		if !strings.EqualFold(fqdn(aws.ToString(rrs.Name)), name) || string(rrs.Type) != t.Type {
			continue
		}
		if len(rrs.ResourceRecords) == 0 {
			return "", &ProviderError{Op: "list route53 records", Err: fmt.Errorf("%s record %s has no values", t.Type, name)}
		}
		value := aws.ToString(rrs.ResourceRecords[0].Value)
		p.logger.Debug("read record", zap.String("zone", t.Zone), zap.String("name", name), zap.String("value", value))
		return value, nil
	}
	return "", &ProviderError{Op: "list route53 records", Err: fmt.Errorf("%s record %s: %w", t.Type, name, ErrRecordNotFound)}
}

func (p *route53Provider) Write(ctx context.Context, t Target, addr string) error {
	ttl := int64(t.TTL)
	if ttl == 0 {
		ttl = Route53DefaultTTL
	}
	p.logger.Debug("upserting record", zap.String("zone", t.Zone), zap.String("name", t.Name), zap.String("value", addr))
	_, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(t.Zone),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String("managed by ddnsd"),
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(fqdn(t.Name)),
						Type: types.RRType(t.Type),
						TTL:  aws.Int64(ttl),
						ResourceRecords: []types.ResourceRecord{
							{Value: aws.String(addr)},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return classify("change route53 records", err)
	}
	return nil
}

func fqdn(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}
