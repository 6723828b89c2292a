// Package exchange trades a role identifier for a time-boxed credential
// triple via STS.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"s3bridge/internal/domain"
)

// MaxDurationSeconds is the hard ceiling on credential lifetime. Requests
// for longer-lived credentials are clamped, never honored.
const MaxDurationSeconds = 3600

// STSClient is the STS surface used by the exchanger. An interface so tests
// can substitute a stub.
type STSClient interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// Exchanger performs one-shot role exchanges. No retries: transient provider
// errors surface to the caller, and the caller bounds the round-trip with a
// context deadline.
type Exchanger struct {
	client STSClient
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Exchanger over the given STS client.
func New(client STSClient, logger *slog.Logger) *Exchanger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exchanger{client: client, now: time.Now, logger: logger}
}

// Exchange assumes the role and returns the resulting credential triple with
// the expiry taken verbatim from the provider response. The session name is
// unique per exchange to aid upstream audit trails.
func (e *Exchanger) Exchange(ctx context.Context, roleARN, serviceName string, durationSeconds int32) (domain.CredentialTriple, error) {
	if durationSeconds <= 0 || durationSeconds > MaxDurationSeconds {
		durationSeconds = MaxDurationSeconds
	}

	sessionName := fmt.Sprintf("%s-session-%d", serviceName, e.now().Unix())

	out, err := e.client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(durationSeconds),
	})
	if err != nil {
		status := 0
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			status = respErr.HTTPStatusCode()
		}
		e.logger.Error("assume role failed", "role", roleARN, "service", serviceName, "error", err)
		return domain.CredentialTriple{}, domain.ErrExchange(status, "assume role %s: %v", roleARN, err)
	}
	if out.Credentials == nil {
		return domain.CredentialTriple{}, domain.ErrExchange(0, "assume role %s: empty credentials in response", roleARN)
	}

	creds := out.Credentials
	triple := domain.CredentialTriple{
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
		Expiration:      aws.ToTime(creds.Expiration),
	}

	e.logger.Info("exchanged role for credentials",
		"service", serviceName,
		"session", sessionName,
		"expires", triple.Expiration,
	)
	return triple, nil
}
