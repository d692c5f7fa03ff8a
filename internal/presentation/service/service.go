// Package service dispatches presentation generation: credentials are grouped
// by format, each group is signed by its registered generator, and the result
// order is fixed by the format ordinal regardless of generator timing.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	credmodels "idhub/internal/credential/models"
	"idhub/internal/did"
	"idhub/internal/keys"
	"idhub/internal/presentation/generator"
	presmetrics "idhub/internal/presentation/metrics"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

// Request is one presentation generation request. Credentials have already
// been resolved and authorized by the caller.
type Request struct {
	ParticipantID          id.ParticipantID
	HolderDID              string
	Audience               string
	PresentationDefinition map[string]interface{}
	Credentials            []credmodels.VerifiableCredentialResource
}

// Response carries the signed artifacts in deterministic group order.
type Response struct {
	Artifacts []generator.Artifact
}

// Service is the presentation dispatcher.
type Service struct {
	generators map[credmodels.Format]generator.Generator
	keys       keys.Resolver
	publisher  did.Publisher
	metrics    *presmetrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *presmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func NewService(keyResolver keys.Resolver, publisher did.Publisher, opts ...Option) *Service {
	s := &Service{
		generators: map[credmodels.Format]generator.Generator{},
		keys:       keyResolver,
		publisher:  publisher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("idhub/presentation")
	}
	return s
}

// AddGenerator registers a generator under its format. The capability table
// is populated once during wiring; an unregistered format fails the whole
// request at dispatch time.
func (s *Service) AddGenerator(g generator.Generator) {
	s.generators[g.Format()] = g
}

// CreatePresentation partitions the credentials by format and signs one
// artifact per group. Groups are processed in ascending format ordinal, so
// the same input always yields the same artifact order; formats are never
// mixed within an artifact. An empty credential list yields an empty
// response.
func (s *Service) CreatePresentation(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "presentation.create", trace.WithAttributes(
		attribute.String("participant_id", req.ParticipantID.String()),
		attribute.Int("credential_count", len(req.Credentials)),
	))
	resp, err := s.createPresentation(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.IncrementFailure(errorCode(err))
		}
	}
	span.End()
	if s.metrics != nil {
		s.metrics.ObserveGeneration(start)
	}
	return resp, err
}

func (s *Service) createPresentation(ctx context.Context, req Request) (Response, error) {
	if req.ParticipantID.IsNil() {
		return Response{}, dErrors.New(dErrors.CodeInvalidInput, "participant context is required")
	}
	if len(req.Credentials) == 0 {
		return Response{Artifacts: []generator.Artifact{}}, nil
	}

	groups := partitionByFormat(req.Credentials)

	// Every format must have a generator before any work starts; a partial
	// presentation would be worse than a failed one.
	for _, group := range groups {
		if _, ok := s.generators[group.format]; !ok {
			return Response{}, dErrors.New(dErrors.CodeFormatUnsupported,
				"no generator registered for format "+group.format.String())
		}
	}

	key, err := s.keys.ResolveSigningKey(ctx, req.ParticipantID, keys.UsagePresentation)
	if err != nil {
		return Response{}, err
	}
	verificationMethod, err := s.publisher.ResolveVerificationMethodID(ctx, req.ParticipantID)
	if err != nil {
		return Response{}, err
	}

	// Indexed slots keep the output in group order no matter which generator
	// finishes first; the first error cancels the rest.
	artifacts := make([]generator.Artifact, len(groups))
	g, groupCtx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			artifact, err := s.generators[group.format].Generate(groupCtx, generator.Input{
				HolderDID:              req.HolderDID,
				Audience:               req.Audience,
				VerificationMethod:     verificationMethod,
				Key:                    key,
				Credentials:            group.credentials,
				PresentationDefinition: req.PresentationDefinition,
			})
			if err != nil {
				return err
			}
			artifacts[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	if s.metrics != nil {
		for _, artifact := range artifacts {
			s.metrics.IncrementArtifact(artifact.Format.String())
		}
	}
	s.logger.DebugContext(ctx, "presentation generated",
		"participant_id", req.ParticipantID,
		"artifacts", len(artifacts),
	)
	return Response{Artifacts: artifacts}, nil
}

type formatGroup struct {
	format      credmodels.Format
	credentials []credmodels.VerifiableCredentialResource
}

// partitionByFormat splits credentials into per-format groups sorted by
// format ordinal. Relative credential order inside a group follows the input.
func partitionByFormat(credentials []credmodels.VerifiableCredentialResource) []formatGroup {
	byFormat := map[credmodels.Format][]credmodels.VerifiableCredentialResource{}
	for _, res := range credentials {
		byFormat[res.Format] = append(byFormat[res.Format], res)
	}
	groups := make([]formatGroup, 0, len(byFormat))
	for format, group := range byFormat {
		groups = append(groups, formatGroup{format: format, credentials: group})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].format < groups[j].format })
	return groups
}

func errorCode(err error) string {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return string(domainErr.Code)
	}
	return string(dErrors.CodeInternal)
}
