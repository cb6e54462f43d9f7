package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"medical-triage-agent/internal/classifier"
	"medical-triage-agent/internal/knowledge"
	"medical-triage-agent/internal/triage"
)

// ReportService delivers the terminal recommendation to the downstream
// reporting collaborator. Only called after FINALIZED or ESCALATED.
type ReportService interface {
	SendRecommendation(ctx context.Context, s Session, rec triage.Recommendation) error
}

type Service interface {
	CreateSession(ctx context.Context, language string) (*Session, error)
	PostMessage(ctx context.Context, id uuid.UUID, text, language string) (*Reply, error)
	CloseSession(ctx context.Context, id uuid.UUID) error
}

// Config holds the orchestrator's own knob: how many counted turns a
// session gets before it escalates.
type Config struct {
	MaxTurns int
}

func DefaultConfig() Config {
	return Config{MaxTurns: 6}
}

type service struct {
	repo      Repository
	kb        *knowledge.Store
	model     *classifier.Handle
	extractor *triage.Extractor
	ranker    *triage.Ranker
	selector  *triage.Selector
	composer  *triage.Composer
	reportSvc ReportService
	cfg       Config
}

func NewService(
	repo Repository,
	kb *knowledge.Store,
	model *classifier.Handle,
	extractor *triage.Extractor,
	ranker *triage.Ranker,
	selector *triage.Selector,
	composer *triage.Composer,
	reportSvc ReportService,
	cfg Config,
) Service {
	return &service{
		repo:      repo,
		kb:        kb,
		model:     model,
		extractor: extractor,
		ranker:    ranker,
		selector:  selector,
		composer:  composer,
		reportSvc: reportSvc,
		cfg:       cfg,
	}
}

func (s *service) CreateSession(ctx context.Context, language string) (*Session, error) {
	sess := &Session{
		ID:       uuid.New(),
		Language: language,
		State:    StateCollecting,
		Belief:   triage.NewBeliefState(),
		Asked:    map[string]bool{},
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *service) CloseSession(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// PostMessage runs one turn of the state machine. The knowledge base and
// classifier references are captured once up front, so a concurrent hot
// swap never mixes artifacts within a turn.
func (s *service) PostMessage(ctx context.Context, id uuid.UUID, text, language string) (*Reply, error) {
	kb := s.kb.Current()
	model := s.model.Current()

	sess, err := s.loadOrCreate(ctx, id, language)
	if err != nil {
		return nil, err
	}
	if sess.State.Terminal() {
		return &Reply{
			SessionID: sess.ID,
			Type:      ReplyError,
			State:     sess.State,
			Turn:      sess.Turns,
			Message:   "This consultation has already concluded. Please start a new session.",
		}, nil
	}

	sess.Turns++

	observations := s.parseUtterance(kb, sess, text)
	if len(observations) == 0 {
		return s.handleNoSymptom(ctx, sess)
	}
	sess.CountedTurns++
	sess.Belief.ApplyAll(observations)
	sess.Pending = ""
	sess.State = StateRanking

	ranking, err := s.ranker.Rank(kb, model, sess.Belief)
	if err == triage.ErrInsufficientEvidence {
		if sess.CountedTurns >= s.cfg.MaxTurns {
			return s.escalate(ctx, sess, triage.Ranking{})
		}
		sess.State = StateCollecting
		if saveErr := s.repo.Save(ctx, sess); saveErr != nil {
			return nil, saveErr
		}
		return &Reply{
			SessionID: sess.ID,
			Type:      ReplyError,
			State:     sess.State,
			Turn:      sess.Turns,
			Message:   "I need at least one symptom you currently have to work with. What are you feeling?",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	sess.Candidates = ranking.Candidates

	if !ranking.Ambiguous {
		return s.finalize(ctx, kb, sess, ranking)
	}
	if sess.CountedTurns >= s.cfg.MaxTurns {
		return s.escalate(ctx, sess, ranking)
	}

	next := s.selector.SelectNext(kb, ranking, sess.Belief, sess.Asked)
	if next == "" {
		// Follow-up exhausted while still ambiguous.
		return s.finalize(ctx, kb, sess, ranking)
	}

	sess.Pending = next
	if sess.Asked == nil {
		sess.Asked = map[string]bool{}
	}
	sess.Asked[next] = true
	sess.State = StateFollowup
	// The asked set is committed together with the pending question: if
	// this save fails, the question was never posed and is not wasted.
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return &Reply{
		SessionID:       sess.ID,
		Type:            ReplyQuestion,
		State:           sess.State,
		Turn:            sess.Turns,
		Question:        questionFor(next, sess.Language),
		QuestionSymptom: next,
	}, nil
}

func (s *service) loadOrCreate(ctx context.Context, id uuid.UUID, language string) (*Session, error) {
	if id == uuid.Nil {
		return s.CreateSession(ctx, language)
	}
	return s.repo.GetByID(ctx, id)
}

// parseUtterance maps one utterance to observations. In FOLLOWUP the
// text is first read as a yes/no/unsure answer to the pending question,
// then scanned for spontaneously mentioned symptoms on top.
func (s *service) parseUtterance(kb *knowledge.KnowledgeBase, sess *Session, text string) []triage.Observation {
	var observations []triage.Observation
	if sess.State == StateFollowup && sess.Pending != "" {
		if polarity, confidence, ok := parseAnswer(text); ok {
			observations = append(observations, triage.Observation{
				SymptomID:  sess.Pending,
				Polarity:   polarity,
				Confidence: confidence,
			})
		}
	}
	extracted, err := s.extractor.Extract(kb, text, sess.Language)
	if err == nil {
		observations = append(observations, extracted...)
	}
	return observations
}

func (s *service) handleNoSymptom(ctx context.Context, sess *Session) (*Reply, error) {
	// A session gets exactly one free rephrase. Every unrecognized
	// input after that counts toward escalation, so total utterances
	// stay bounded by MaxTurns + 1.
	if sess.GraceUsed {
		sess.CountedTurns++
	} else {
		sess.GraceUsed = true
	}

	if sess.CountedTurns >= s.cfg.MaxTurns {
		return s.escalate(ctx, sess, triage.Ranking{Candidates: sess.Candidates, Ambiguous: true})
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return &Reply{
		SessionID: sess.ID,
		Type:      ReplyError,
		State:     sess.State,
		Turn:      sess.Turns,
		Message:   "I could not recognize any symptoms in that. Could you rephrase, naming what you feel?",
	}, nil
}

func (s *service) finalize(ctx context.Context, kb *knowledge.KnowledgeBase, sess *Session, ranking triage.Ranking) (*Reply, error) {
	rec := s.composer.Compose(kb, ranking)
	return s.conclude(ctx, sess, StateFinalized, rec)
}

func (s *service) escalate(ctx context.Context, sess *Session, ranking triage.Ranking) (*Reply, error) {
	rec := s.composer.Inconclusive(ranking)
	return s.conclude(ctx, sess, StateEscalated, rec)
}

func (s *service) conclude(ctx context.Context, sess *Session, state State, rec triage.Recommendation) (*Reply, error) {
	sess.State = state
	sess.Pending = ""
	sess.Outcome = &rec
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}

	if s.reportSvc != nil {
		// Report delivery runs outside the conversation loop and must
		// not block or fail the reply.
		go func(snapshot Session, rec triage.Recommendation) {
			if err := s.reportSvc.SendRecommendation(context.Background(), snapshot, rec); err != nil {
				log.Printf("report delivery for session %s failed: %v", snapshot.ID, err)
			}
		}(*sess, rec)
	}

	return &Reply{
		SessionID:      sess.ID,
		Type:           ReplyRecommendation,
		State:          sess.State,
		Turn:           sess.Turns,
		Recommendation: &rec,
	}, nil
}

func questionFor(symptomID, language string) string {
	name := strings.ReplaceAll(symptomID, "_", " ")
	if language == "ar" {
		return fmt.Sprintf("هل تعاني من %s؟", name)
	}
	return fmt.Sprintf("Are you experiencing %s?", name)
}

var (
	yesWords = map[string]bool{
		"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
		"indeed": true, "correct": true, "definitely": true,
		"نعم": true, "اجل": true, "ايوه": true, "ايوة": true, "اكيد": true,
	}
	noWords = map[string]bool{
		"no": true, "nope": true, "nah": true, "never": true,
		"لا": true, "كلا": true,
	}
	unsureWords = map[string]bool{
		"unsure": true, "maybe": true, "perhaps": true, "possibly": true,
		"dunno": true, "ربما": true, "يمكن": true,
	}
)

// parseAnswer reads an explicit yes/no/unsure at the start of the reply
// to a pending follow-up question. Anything else is left to the
// extractor.
func parseAnswer(text string) (triage.Polarity, float64, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return "", 0, false
	}
	head := strings.Trim(fields[0], ".,!?؟")
	switch {
	case yesWords[head]:
		return triage.Present, 1.0, true
	case noWords[head]:
		return triage.Absent, 1.0, true
	case unsureWords[head]:
		return triage.Uncertain, 0.5, true
	}
	if len(fields) >= 2 && head == "not" && strings.Trim(fields[1], ".,!?؟") == "sure" {
		return triage.Uncertain, 0.5, true
	}
	return "", 0, false
}
