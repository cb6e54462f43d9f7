package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-triage-agent/internal/classifier"
	"medical-triage-agent/internal/knowledge"
	"medical-triage-agent/internal/triage"
)

type fixedPredictor struct {
	dist map[string]float64
}

func (f fixedPredictor) Version() string { return "fixed" }

func (f fixedPredictor) Predict(string) map[string]float64 { return f.dist }

type captureReport struct {
	delivered chan triage.Recommendation
}

func (c *captureReport) SendRecommendation(_ context.Context, _ Session, rec triage.Recommendation) error {
	c.delivered <- rec
	return nil
}

func testKB(t *testing.T) *knowledge.KnowledgeBase {
	t.Helper()
	kb, err := knowledge.New(
		[]knowledge.Symptom{
			{ID: "fever", Synonyms: map[string][]string{"en": {"high fever"}}},
			{ID: "cough"},
			{ID: "headache"},
			{ID: "sore_throat", Synonyms: map[string][]string{"en": {"throat pain"}}},
		},
		[]knowledge.Disease{
			{
				ID:             "influenza",
				Description:    "Viral respiratory infection.",
				Precautions:    []string{"Rest"},
				Tests:          []string{"Rapid antigen test"},
				SymptomWeights: map[string]float64{"fever": 0.8, "cough": 0.6},
			},
			{
				ID:             "common_cold",
				Description:    "Mild viral infection.",
				SymptomWeights: map[string]float64{"cough": 0.5, "headache": 0.3},
			},
		},
	)
	require.NoError(t, err)
	return kb
}

type svcOptions struct {
	maxTurns        int
	ambiguityMargin float64
	report          ReportService
}

func newTestService(t *testing.T, opts svcOptions) Service {
	t.Helper()
	if opts.maxTurns == 0 {
		opts.maxTurns = 6
	}
	if opts.ambiguityMargin == 0 {
		opts.ambiguityMargin = 0.05
	}
	kbStore := knowledge.NewStore(testKB(t))
	handle := classifier.NewHandle(fixedPredictor{dist: map[string]float64{
		"influenza":   0.5,
		"common_cold": 0.5,
	}})
	return NewService(
		NewMemoryRepository(),
		kbStore,
		handle,
		triage.NewExtractor(),
		triage.NewRanker(triage.RankerConfig{ConfidenceThreshold: 0.35, AmbiguityMargin: opts.ambiguityMargin}),
		triage.NewSelector(5),
		triage.NewComposer(triage.ComposerConfig{FinalizeThreshold: 0.35, TopN: 3}),
		opts.report,
		Config{MaxTurns: opts.maxTurns},
	)
}

func TestFirstMessageCreatesSessionAndFinalizes(t *testing.T) {
	svc := newTestService(t, svcOptions{})
	ctx := context.Background()

	reply, err := svc.PostMessage(ctx, uuid.Nil, "I have a high fever and a cough", "en")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, reply.SessionID)
	assert.Equal(t, ReplyRecommendation, reply.Type)
	assert.Equal(t, StateFinalized, reply.State)
	require.NotNil(t, reply.Recommendation)
	assert.True(t, reply.Recommendation.Conclusive)
	assert.Equal(t, "influenza", reply.Recommendation.DiseaseID)
}

func TestFollowupLoopConverges(t *testing.T) {
	// A wide ambiguity margin keeps the session asking until the
	// question pool is exhausted.
	svc := newTestService(t, svcOptions{ambiguityMargin: 0.30})
	ctx := context.Background()

	reply, err := svc.PostMessage(ctx, uuid.Nil, "I have a cough", "en")
	require.NoError(t, err)
	require.Equal(t, ReplyQuestion, reply.Type)
	assert.Equal(t, StateFollowup, reply.State)
	assert.Equal(t, "fever", reply.QuestionSymptom)
	assert.Equal(t, "Are you experiencing fever?", reply.Question)

	id := reply.SessionID

	reply, err = svc.PostMessage(ctx, id, "yes", "en")
	require.NoError(t, err)
	require.Equal(t, ReplyQuestion, reply.Type)
	assert.Equal(t, "headache", reply.QuestionSymptom, "a symptom is never asked twice")

	reply, err = svc.PostMessage(ctx, id, "no", "en")
	require.NoError(t, err)
	require.Equal(t, ReplyRecommendation, reply.Type)
	assert.Equal(t, StateFinalized, reply.State)
	require.NotNil(t, reply.Recommendation)
	assert.True(t, reply.Recommendation.Conclusive)
	assert.Equal(t, "influenza", reply.Recommendation.DiseaseID)
	assert.Equal(t, 3, reply.Turn)
}

func TestFollowupAnswerMergesSpontaneousSymptoms(t *testing.T) {
	svc := newTestService(t, svcOptions{ambiguityMargin: 0.30})
	ctx := context.Background()

	reply, err := svc.PostMessage(ctx, uuid.Nil, "I have a cough", "en")
	require.NoError(t, err)
	require.Equal(t, "fever", reply.QuestionSymptom)

	// The answer denies the pending symptom and volunteers a new one.
	reply, err = svc.PostMessage(ctx, reply.SessionID, "no, but my throat pain is bad", "en")
	require.NoError(t, err)

	// fever:absent + sore_throat:present are both in the belief now;
	// neither may be asked again.
	if reply.Type == ReplyQuestion {
		assert.NotEqual(t, "fever", reply.QuestionSymptom)
		assert.NotEqual(t, "sore_throat", reply.QuestionSymptom)
	}
}

func TestEscalationAtMaxTurns(t *testing.T) {
	report := &captureReport{delivered: make(chan triage.Recommendation, 1)}
	svc := newTestService(t, svcOptions{maxTurns: 1, ambiguityMargin: 0.30, report: report})
	ctx := context.Background()

	reply, err := svc.PostMessage(ctx, uuid.Nil, "I have a cough", "en")
	require.NoError(t, err)

	assert.Equal(t, ReplyRecommendation, reply.Type)
	assert.Equal(t, StateEscalated, reply.State)
	require.NotNil(t, reply.Recommendation)
	assert.False(t, reply.Recommendation.Conclusive, "escalation never forces a diagnosis")
	assert.NotEmpty(t, reply.Recommendation.Candidates)

	select {
	case rec := <-report.delivered:
		assert.False(t, rec.Conclusive)
	case <-time.After(2 * time.Second):
		t.Fatal("report was not delivered after escalation")
	}
}

func TestNoSymptomGraceThenEscalation(t *testing.T) {
	svc := newTestService(t, svcOptions{maxTurns: 2})
	ctx := context.Background()

	// First unrecognized input: free rephrase, no escalation pressure.
	reply, err := svc.PostMessage(ctx, uuid.Nil, "my car broke down", "en")
	require.NoError(t, err)
	assert.Equal(t, ReplyError, reply.Type)
	assert.Equal(t, StateCollecting, reply.State)
	id := reply.SessionID

	// Every unrecognized input after the first counts.
	reply, err = svc.PostMessage(ctx, id, "the weather is nice", "en")
	require.NoError(t, err)
	assert.Equal(t, ReplyError, reply.Type)

	reply, err = svc.PostMessage(ctx, id, "hello again", "en")
	require.NoError(t, err)
	assert.Equal(t, ReplyRecommendation, reply.Type)
	assert.Equal(t, StateEscalated, reply.State)
	assert.Equal(t, 3, reply.Turn, "bounded by maxTurns + 1 utterances")
}

func TestGraceNotRenewedByRecognizedInput(t *testing.T) {
	// Alternating unrecognized and recognized inputs must not earn a
	// fresh rephrase per cycle: the grace is spent once per session.
	svc := newTestService(t, svcOptions{maxTurns: 2})
	ctx := context.Background()

	reply, err := svc.PostMessage(ctx, uuid.Nil, "my car broke down", "en")
	require.NoError(t, err)
	assert.Equal(t, ReplyError, reply.Type)
	id := reply.SessionID

	// Recognized but rankable on nothing: counts as turn one.
	reply, err = svc.PostMessage(ctx, id, "no fever", "en")
	require.NoError(t, err)
	assert.Equal(t, ReplyError, reply.Type)
	assert.Equal(t, StateCollecting, reply.State)

	// Second unrecognized input counts as turn two and escalates.
	reply, err = svc.PostMessage(ctx, id, "the weather is bad", "en")
	require.NoError(t, err)
	assert.Equal(t, ReplyRecommendation, reply.Type)
	assert.Equal(t, StateEscalated, reply.State)
	assert.Equal(t, 3, reply.Turn, "bounded by maxTurns + 1 utterances")
}

func TestInsufficientEvidenceKeepsCollecting(t *testing.T) {
	svc := newTestService(t, svcOptions{})
	ctx := context.Background()

	// Only a denial: recognized, but nothing to rank on.
	reply, err := svc.PostMessage(ctx, uuid.Nil, "no fever", "en")
	require.NoError(t, err)

	assert.Equal(t, ReplyError, reply.Type)
	assert.Equal(t, StateCollecting, reply.State)
	assert.Contains(t, reply.Message, "at least one symptom")
}

func TestUnknownSessionID(t *testing.T) {
	svc := newTestService(t, svcOptions{})

	_, err := svc.PostMessage(context.Background(), uuid.New(), "I have a cough", "en")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTerminalSessionRejectsFurtherMessages(t *testing.T) {
	svc := newTestService(t, svcOptions{})
	ctx := context.Background()

	reply, err := svc.PostMessage(ctx, uuid.Nil, "I have a high fever and a cough", "en")
	require.NoError(t, err)
	require.Equal(t, StateFinalized, reply.State)

	reply, err = svc.PostMessage(ctx, reply.SessionID, "and also a headache", "en")
	require.NoError(t, err)
	assert.Equal(t, ReplyError, reply.Type)
	assert.Contains(t, reply.Message, "start a new session")
}

func TestCloseSessionEvicts(t *testing.T) {
	svc := newTestService(t, svcOptions{ambiguityMargin: 0.30})
	ctx := context.Background()

	reply, err := svc.PostMessage(ctx, uuid.Nil, "I have a cough", "en")
	require.NoError(t, err)

	require.NoError(t, svc.CloseSession(ctx, reply.SessionID))
	_, err = svc.PostMessage(ctx, reply.SessionID, "yes", "en")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
