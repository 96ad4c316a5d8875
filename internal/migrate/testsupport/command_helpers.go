package testsupport

import (
	"context"
	"fmt"

	"github.com/temirov/stackmigrate/internal/migrate"
	"github.com/temirov/stackmigrate/internal/stackapi"
)

const (
	stubShareURLTemplateConstant = "https://main.example.com/%s/%d"
	stubTokenTemplateConstant    = "stub-token-%d"
	firstStubIdentifierConstant  = 500
	questionShareSegmentConstant = "questions"
	answerShareSegmentConstant   = "answers"
	articleShareSegmentConstant  = "articles"
)

// Operation names recorded by ServiceStub.
const (
	OperationCopyAllQuestions = "CopyAllQuestions"
	OperationCopyQuestions    = "CopyQuestions"
	OperationCopyAllArticles  = "CopyAllArticles"
	OperationCopyArticles     = "CopyArticles"
)

// ServiceStub records bulk copy requests and returns a configured outcome.
type ServiceStub struct {
	Result              migrate.BulkResult
	Error               error
	Operations          []string
	ReceivedIdentifiers [][]int
}

// CopyAllQuestions records the call.
func (service *ServiceStub) CopyAllQuestions(context.Context) (migrate.BulkResult, error) {
	service.Operations = append(service.Operations, OperationCopyAllQuestions)
	return service.Result, service.Error
}

// CopyQuestions records the call and identifiers.
func (service *ServiceStub) CopyQuestions(_ context.Context, questionIDs []int) (migrate.BulkResult, error) {
	service.Operations = append(service.Operations, OperationCopyQuestions)
	service.ReceivedIdentifiers = append(service.ReceivedIdentifiers, append([]int{}, questionIDs...))
	return service.Result, service.Error
}

// CopyAllArticles records the call.
func (service *ServiceStub) CopyAllArticles(context.Context) (migrate.BulkResult, error) {
	service.Operations = append(service.Operations, OperationCopyAllArticles)
	return service.Result, service.Error
}

// CopyArticles records the call and identifiers.
func (service *ServiceStub) CopyArticles(_ context.Context, articleIDs []int) (migrate.BulkResult, error) {
	service.Operations = append(service.Operations, OperationCopyArticles)
	service.ReceivedIdentifiers = append(service.ReceivedIdentifiers, append([]int{}, articleIDs...))
	return service.Result, service.Error
}

// SourceStub serves records from memory. Missing identifiers report stackapi.ErrNotFound.
type SourceStub struct {
	Questions    []stackapi.Question
	Answers      map[int][]stackapi.Answer
	Articles     []stackapi.Article
	ListError    error
	AnswersError error
	Fetched      []int
}

// ListQuestions returns the configured questions.
func (source *SourceStub) ListQuestions(context.Context) ([]stackapi.Question, error) {
	if source.ListError != nil {
		return nil, source.ListError
	}
	return append([]stackapi.Question{}, source.Questions...), nil
}

// GetQuestion returns the question with the identifier.
func (source *SourceStub) GetQuestion(_ context.Context, questionID int) (stackapi.Question, error) {
	source.Fetched = append(source.Fetched, questionID)
	for _, question := range source.Questions {
		if question.ID == questionID {
			return question, nil
		}
	}
	return stackapi.Question{}, notFound(questionID)
}

// ListAnswers returns the answers configured for the question.
func (source *SourceStub) ListAnswers(_ context.Context, questionID int) ([]stackapi.Answer, error) {
	if source.AnswersError != nil {
		return nil, source.AnswersError
	}
	return append([]stackapi.Answer{}, source.Answers[questionID]...), nil
}

// ListArticles returns the configured articles.
func (source *SourceStub) ListArticles(context.Context) ([]stackapi.Article, error) {
	if source.ListError != nil {
		return nil, source.ListError
	}
	return append([]stackapi.Article{}, source.Articles...), nil
}

// GetArticle returns the article with the identifier.
func (source *SourceStub) GetArticle(_ context.Context, articleID int) (stackapi.Article, error) {
	source.Fetched = append(source.Fetched, articleID)
	for _, article := range source.Articles {
		if article.ID == articleID {
			return article, nil
		}
	}
	return stackapi.Article{}, notFound(articleID)
}

func notFound(identifier int) error {
	return stackapi.OperationError{
		Operation: stackapi.OperationName(fmt.Sprintf("get %d", identifier)),
		Cause:     stackapi.StatusError{StatusCode: 404},
	}
}

// DestinationEvent records one call received by DestinationStub in order.
type DestinationEvent struct {
	Kind             string
	AccountID        int
	ParentQuestionID int
	CreatedID        int
	Title            string
	Body             string
	Tags             []string
	ArticleType      stackapi.ArticleType
}

// Destination event kinds.
const (
	EventImpersonate    = "impersonate"
	EventCreateQuestion = "create_question"
	EventCreateAnswer   = "create_answer"
	EventCreateArticle  = "create_article"
)

// DestinationStub records impersonation and write calls.
type DestinationStub struct {
	Events             []DestinationEvent
	ImpersonationError error
	// FailingAccounts rejects impersonation for the listed accounts.
	FailingAccounts map[int]error
	CreateError     error
	nextIdentifier  int
}

// RequestImpersonationToken records the requested account.
func (destination *DestinationStub) RequestImpersonationToken(_ context.Context, accountID int) (stackapi.ImpersonationToken, error) {
	destination.Events = append(destination.Events, DestinationEvent{Kind: EventImpersonate, AccountID: accountID})
	if destination.ImpersonationError != nil {
		return stackapi.ImpersonationToken{}, destination.ImpersonationError
	}
	if failure, failing := destination.FailingAccounts[accountID]; failing {
		return stackapi.ImpersonationToken{}, failure
	}
	return stackapi.ImpersonationToken{AccountID: accountID, Value: fmt.Sprintf(stubTokenTemplateConstant, accountID)}, nil
}

// CreateQuestion records the draft and returns a new question.
func (destination *DestinationStub) CreateQuestion(_ context.Context, draft stackapi.QuestionDraft, impersonation stackapi.ImpersonationToken) (stackapi.Question, error) {
	if destination.CreateError != nil {
		return stackapi.Question{}, destination.CreateError
	}
	identifier := destination.allocate()
	destination.Events = append(destination.Events, DestinationEvent{
		Kind:      EventCreateQuestion,
		AccountID: impersonation.AccountID,
		CreatedID: identifier,
		Title:     draft.Title,
		Body:      draft.Body,
		Tags:      append([]string{}, draft.Tags...),
	})
	return stackapi.Question{
		ID:       identifier,
		Title:    draft.Title,
		Body:     draft.Body,
		Owner:    stackapi.KnownOwner(impersonation.AccountID),
		ShareURL: fmt.Sprintf(stubShareURLTemplateConstant, questionShareSegmentConstant, identifier),
	}, nil
}

// CreateAnswer records the draft and returns a new answer.
func (destination *DestinationStub) CreateAnswer(_ context.Context, questionID int, draft stackapi.AnswerDraft, impersonation stackapi.ImpersonationToken) (stackapi.Answer, error) {
	if destination.CreateError != nil {
		return stackapi.Answer{}, destination.CreateError
	}
	identifier := destination.allocate()
	destination.Events = append(destination.Events, DestinationEvent{
		Kind:             EventCreateAnswer,
		AccountID:        impersonation.AccountID,
		ParentQuestionID: questionID,
		CreatedID:        identifier,
		Body:             draft.Body,
	})
	return stackapi.Answer{
		ID:         identifier,
		QuestionID: questionID,
		Body:       draft.Body,
		Owner:      stackapi.KnownOwner(impersonation.AccountID),
		ShareURL:   fmt.Sprintf(stubShareURLTemplateConstant, answerShareSegmentConstant, identifier),
	}, nil
}

// CreateArticle records the draft and returns a new article.
func (destination *DestinationStub) CreateArticle(_ context.Context, draft stackapi.ArticleDraft, impersonation stackapi.ImpersonationToken) (stackapi.Article, error) {
	if destination.CreateError != nil {
		return stackapi.Article{}, destination.CreateError
	}
	identifier := destination.allocate()
	destination.Events = append(destination.Events, DestinationEvent{
		Kind:        EventCreateArticle,
		AccountID:   impersonation.AccountID,
		CreatedID:   identifier,
		Title:       draft.Title,
		Body:        draft.Body,
		Tags:        append([]string{}, draft.Tags...),
		ArticleType: draft.Type,
	})
	return stackapi.Article{
		ID:       identifier,
		Title:    draft.Title,
		Body:     draft.Body,
		Type:     draft.Type,
		Owner:    stackapi.KnownOwner(impersonation.AccountID),
		ShareURL: fmt.Sprintf(stubShareURLTemplateConstant, articleShareSegmentConstant, identifier),
	}, nil
}

// EventsOfKind filters recorded events.
func (destination *DestinationStub) EventsOfKind(kind string) []DestinationEvent {
	filtered := make([]DestinationEvent, 0)
	for _, event := range destination.Events {
		if event.Kind == kind {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func (destination *DestinationStub) allocate() int {
	if destination.nextIdentifier == 0 {
		destination.nextIdentifier = firstStubIdentifierConstant
	}
	destination.nextIdentifier++
	return destination.nextIdentifier
}

// RecorderStub collects copy records in memory.
type RecorderStub struct {
	Records []migrate.CopyRecord
	Error   error
}

// RecordCopy appends the record.
func (recorder *RecorderStub) RecordCopy(_ context.Context, record migrate.CopyRecord) error {
	if recorder.Error != nil {
		return recorder.Error
	}
	recorder.Records = append(recorder.Records, record)
	return nil
}
