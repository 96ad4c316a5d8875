package migrate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/stackmigrate/internal/stackapi"
)

const (
	// NoFallbackAccountIdentifier marks that no fallback account was configured. It is passed
	// through to the impersonation request unchanged when an owner cannot be resolved.
	NoFallbackAccountIdentifier = -1

	sourceClientMissingMessageConstant      = "source client not configured"
	destinationClientMissingMessageConstant = "destination client not configured"
	fallbackAccountConfiguredMessage        = "Fallback account configured"
	impersonationResolvedMessage            = "Impersonation resolved"
	copyStartedMessage                      = "Copying content"
	copyCompletedMessage                    = "Content copied"
	copyFailureContinuingMessage            = "Copy failed, continuing with next item"
	logFieldFallbackAccountIDConstant       = "fallback_account_id"
	logFieldAccountIDConstant               = "account_id"
	logFieldOwnerKnownConstant              = "owner_known"
	logFieldContentTypeConstant             = "content_type"
	logFieldSourceURLConstant               = "source_url"
	logFieldDestinationURLConstant          = "destination_url"
	logFieldSourceIDConstant                = "source_id"
)

// ContentType names the kind of record being copied.
type ContentType string

// Copied content types.
const (
	ContentTypeQuestion ContentType = ContentType("question")
	ContentTypeAnswer   ContentType = ContentType("answer")
	ContentTypeArticle  ContentType = ContentType("article")
)

// SourceClient reads records from the instance being migrated from.
type SourceClient interface {
	ListQuestions(executionContext context.Context) ([]stackapi.Question, error)
	GetQuestion(executionContext context.Context, questionID int) (stackapi.Question, error)
	ListAnswers(executionContext context.Context, questionID int) ([]stackapi.Answer, error)
	ListArticles(executionContext context.Context) ([]stackapi.Article, error)
	GetArticle(executionContext context.Context, articleID int) (stackapi.Article, error)
}

// DestinationClient writes records to the instance being migrated to.
type DestinationClient interface {
	RequestImpersonationToken(executionContext context.Context, accountID int) (stackapi.ImpersonationToken, error)
	CreateQuestion(executionContext context.Context, draft stackapi.QuestionDraft, impersonation stackapi.ImpersonationToken) (stackapi.Question, error)
	CreateAnswer(executionContext context.Context, questionID int, draft stackapi.AnswerDraft, impersonation stackapi.ImpersonationToken) (stackapi.Answer, error)
	CreateArticle(executionContext context.Context, draft stackapi.ArticleDraft, impersonation stackapi.ImpersonationToken) (stackapi.Article, error)
}

// CopyExecutor runs bulk copy operations.
type CopyExecutor interface {
	CopyAllQuestions(executionContext context.Context) (BulkResult, error)
	CopyQuestions(executionContext context.Context, questionIDs []int) (BulkResult, error)
	CopyAllArticles(executionContext context.Context) (BulkResult, error)
	CopyArticles(executionContext context.Context, articleIDs []int) (BulkResult, error)
}

// ServiceDependencies describes required collaborators for copying.
type ServiceDependencies struct {
	Logger      *zap.Logger
	Source      SourceClient
	Destination DestinationClient
	// FallbackAccountID attributes records whose owner is unknown. Use NoFallbackAccountIdentifier
	// when none is configured.
	FallbackAccountID int
	// ContinueOnError keeps bulk operations going past failed items and reports every failure at the end.
	ContinueOnError bool
	Recorder        CopyRecorder
}

// AnswerCopyResult describes one copied answer.
type AnswerCopyResult struct {
	SourceAnswerID      int
	DestinationAnswerID int
	SourceURL           string
	DestinationURL      string
	AccountID           int
}

// QuestionCopyResult describes a copied question and the answers copied beneath it.
type QuestionCopyResult struct {
	SourceQuestionID      int
	DestinationQuestionID int
	SourceURL             string
	DestinationURL        string
	AccountID             int
	Answers               []AnswerCopyResult
}

// ArticleCopyResult describes one copied article.
type ArticleCopyResult struct {
	SourceArticleID      int
	DestinationArticleID int
	SourceURL            string
	DestinationURL       string
	AccountID            int
	ArticleType          stackapi.ArticleType
}

// Service copies questions, answers, and articles between two knowledge-base instances.
type Service struct {
	logger            *zap.Logger
	source            SourceClient
	destination       DestinationClient
	fallbackAccountID int
	continueOnError   bool
	recorder          CopyRecorder
}

var (
	errSourceClientMissing      = errors.New(sourceClientMissingMessageConstant)
	errDestinationClientMissing = errors.New(destinationClientMissingMessageConstant)
)

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Source == nil {
		return nil, errSourceClientMissing
	}
	if dependencies.Destination == nil {
		return nil, errDestinationClientMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	recorder := dependencies.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	logger.Info(fallbackAccountConfiguredMessage, zap.Int(logFieldFallbackAccountIDConstant, dependencies.FallbackAccountID))

	return &Service{
		logger:            logger,
		source:            dependencies.Source,
		destination:       dependencies.Destination,
		fallbackAccountID: dependencies.FallbackAccountID,
		continueOnError:   dependencies.ContinueOnError,
		recorder:          recorder,
	}, nil
}

// ResolveImpersonation picks the owner's account, or the fallback account when the owner is
// unknown, and requests an impersonation token for it. Call it immediately before each write.
func (service *Service) ResolveImpersonation(executionContext context.Context, owner stackapi.OwnerReference) (stackapi.ImpersonationToken, error) {
	accountID, ownerKnown := owner.AccountID()
	if !ownerKnown {
		accountID = service.fallbackAccountID
	}

	service.logger.Info(
		impersonationResolvedMessage,
		zap.Int(logFieldAccountIDConstant, accountID),
		zap.Bool(logFieldOwnerKnownConstant, ownerKnown),
	)

	return service.destination.RequestImpersonationToken(executionContext, accountID)
}

// CopyQuestion copies a question and then each of its answers, in source order, under the new question.
func (service *Service) CopyQuestion(executionContext context.Context, questionID int) (QuestionCopyResult, error) {
	question, fetchError := service.source.GetQuestion(executionContext, questionID)
	if fetchError != nil {
		return QuestionCopyResult{}, newCopyError(ContentTypeQuestion, questionID, CopyStageFetch, fetchError)
	}

	impersonation, impersonationError := service.ResolveImpersonation(executionContext, question.Owner)
	if impersonationError != nil {
		return QuestionCopyResult{}, newCopyError(ContentTypeQuestion, questionID, CopyStageImpersonate, impersonationError)
	}

	draft := stackapi.QuestionDraft{
		Title: question.Title,
		Body:  question.Body,
		Tags:  stackapi.TagNames(question.Tags),
	}

	service.logCopyStarted(ContentTypeQuestion, questionID, question.ShareURL)
	created, createError := service.destination.CreateQuestion(executionContext, draft, impersonation)
	if createError != nil {
		return QuestionCopyResult{}, newCopyError(ContentTypeQuestion, questionID, CopyStageCreate, createError)
	}
	service.logCopyCompleted(ContentTypeQuestion, questionID, created.ShareURL)

	result := QuestionCopyResult{
		SourceQuestionID:      questionID,
		DestinationQuestionID: created.ID,
		SourceURL:             question.ShareURL,
		DestinationURL:        created.ShareURL,
		AccountID:             impersonation.AccountID,
	}

	if recordError := service.recorder.RecordCopy(executionContext, CopyRecord{
		ContentType:    ContentTypeQuestion,
		SourceID:       questionID,
		SourceURL:      question.ShareURL,
		DestinationID:  created.ID,
		DestinationURL: created.ShareURL,
		AccountID:      impersonation.AccountID,
	}); recordError != nil {
		return result, newCopyError(ContentTypeQuestion, questionID, CopyStageRecord, recordError)
	}

	answers, answersError := service.source.ListAnswers(executionContext, questionID)
	if answersError != nil {
		return result, newCopyError(ContentTypeQuestion, questionID, CopyStageListAnswers, answersError)
	}

	for _, answer := range answers {
		answerResult, answerError := service.copyAnswer(executionContext, created.ID, answer)
		if answerError != nil {
			return result, answerError
		}
		result.Answers = append(result.Answers, answerResult)
	}

	return result, nil
}

func (service *Service) copyAnswer(executionContext context.Context, destinationQuestionID int, answer stackapi.Answer) (AnswerCopyResult, error) {
	impersonation, impersonationError := service.ResolveImpersonation(executionContext, answer.Owner)
	if impersonationError != nil {
		return AnswerCopyResult{}, newCopyError(ContentTypeAnswer, answer.ID, CopyStageImpersonate, impersonationError)
	}

	service.logCopyStarted(ContentTypeAnswer, answer.ID, answer.ShareURL)
	created, createError := service.destination.CreateAnswer(executionContext, destinationQuestionID, stackapi.AnswerDraft{Body: answer.Body}, impersonation)
	if createError != nil {
		return AnswerCopyResult{}, newCopyError(ContentTypeAnswer, answer.ID, CopyStageCreate, createError)
	}
	service.logCopyCompleted(ContentTypeAnswer, answer.ID, created.ShareURL)

	result := AnswerCopyResult{
		SourceAnswerID:      answer.ID,
		DestinationAnswerID: created.ID,
		SourceURL:           answer.ShareURL,
		DestinationURL:      created.ShareURL,
		AccountID:           impersonation.AccountID,
	}

	if recordError := service.recorder.RecordCopy(executionContext, CopyRecord{
		ContentType:    ContentTypeAnswer,
		SourceID:       answer.ID,
		SourceURL:      answer.ShareURL,
		DestinationID:  created.ID,
		DestinationURL: created.ShareURL,
		AccountID:      impersonation.AccountID,
	}); recordError != nil {
		return result, newCopyError(ContentTypeAnswer, answer.ID, CopyStageRecord, recordError)
	}

	return result, nil
}

// CopyAllQuestions copies every question listed on the source, in listing order.
func (service *Service) CopyAllQuestions(executionContext context.Context) (BulkResult, error) {
	questions, listError := service.source.ListQuestions(executionContext)
	if listError != nil {
		return BulkResult{ContentType: ContentTypeQuestion}, newCopyError(ContentTypeQuestion, 0, CopyStageList, listError)
	}

	questionIDs := make([]int, 0, len(questions))
	for _, question := range questions {
		questionIDs = append(questionIDs, question.ID)
	}

	return service.CopyQuestions(executionContext, questionIDs)
}

// CopyQuestions copies the given questions in order.
func (service *Service) CopyQuestions(executionContext context.Context, questionIDs []int) (BulkResult, error) {
	return service.copyEach(executionContext, ContentTypeQuestion, questionIDs, func(questionID int) (ItemOutcome, error) {
		result, copyError := service.CopyQuestion(executionContext, questionID)
		return ItemOutcome{
			ContentType:    ContentTypeQuestion,
			SourceID:       questionID,
			DestinationID:  result.DestinationQuestionID,
			DestinationURL: result.DestinationURL,
			ChildCount:     len(result.Answers),
		}, copyError
	})
}

// CopyArticle copies one article, passing its type through unchanged.
func (service *Service) CopyArticle(executionContext context.Context, articleID int) (ArticleCopyResult, error) {
	article, fetchError := service.source.GetArticle(executionContext, articleID)
	if fetchError != nil {
		return ArticleCopyResult{}, newCopyError(ContentTypeArticle, articleID, CopyStageFetch, fetchError)
	}

	impersonation, impersonationError := service.ResolveImpersonation(executionContext, article.Owner)
	if impersonationError != nil {
		return ArticleCopyResult{}, newCopyError(ContentTypeArticle, articleID, CopyStageImpersonate, impersonationError)
	}

	draft := stackapi.ArticleDraft{
		Title: article.Title,
		Body:  article.Body,
		Type:  article.Type,
		Tags:  stackapi.TagNames(article.Tags),
	}

	service.logCopyStarted(ContentTypeArticle, articleID, article.ShareURL)
	created, createError := service.destination.CreateArticle(executionContext, draft, impersonation)
	if createError != nil {
		return ArticleCopyResult{}, newCopyError(ContentTypeArticle, articleID, CopyStageCreate, createError)
	}
	service.logCopyCompleted(ContentTypeArticle, articleID, created.ShareURL)

	result := ArticleCopyResult{
		SourceArticleID:      articleID,
		DestinationArticleID: created.ID,
		SourceURL:            article.ShareURL,
		DestinationURL:       created.ShareURL,
		AccountID:            impersonation.AccountID,
		ArticleType:          article.Type,
	}

	if recordError := service.recorder.RecordCopy(executionContext, CopyRecord{
		ContentType:    ContentTypeArticle,
		SourceID:       articleID,
		SourceURL:      article.ShareURL,
		DestinationID:  created.ID,
		DestinationURL: created.ShareURL,
		AccountID:      impersonation.AccountID,
	}); recordError != nil {
		return result, newCopyError(ContentTypeArticle, articleID, CopyStageRecord, recordError)
	}

	return result, nil
}

// CopyAllArticles copies every article listed on the source, in listing order.
func (service *Service) CopyAllArticles(executionContext context.Context) (BulkResult, error) {
	articles, listError := service.source.ListArticles(executionContext)
	if listError != nil {
		return BulkResult{ContentType: ContentTypeArticle}, newCopyError(ContentTypeArticle, 0, CopyStageList, listError)
	}

	articleIDs := make([]int, 0, len(articles))
	for _, article := range articles {
		articleIDs = append(articleIDs, article.ID)
	}

	return service.CopyArticles(executionContext, articleIDs)
}

// CopyArticles copies the given articles in order.
func (service *Service) CopyArticles(executionContext context.Context, articleIDs []int) (BulkResult, error) {
	return service.copyEach(executionContext, ContentTypeArticle, articleIDs, func(articleID int) (ItemOutcome, error) {
		result, copyError := service.CopyArticle(executionContext, articleID)
		return ItemOutcome{
			ContentType:    ContentTypeArticle,
			SourceID:       articleID,
			DestinationID:  result.DestinationArticleID,
			DestinationURL: result.DestinationURL,
		}, copyError
	})
}

// copyEach stops at the first failure unless continueOnError is set. Cancellation always stops.
func (service *Service) copyEach(executionContext context.Context, contentType ContentType, sourceIDs []int, copyItem func(int) (ItemOutcome, error)) (BulkResult, error) {
	result := BulkResult{ContentType: contentType, Outcomes: make([]ItemOutcome, 0, len(sourceIDs))}
	var failures []error

	for _, sourceID := range sourceIDs {
		outcome, copyError := copyItem(sourceID)
		outcome.Error = copyError
		result.Outcomes = append(result.Outcomes, outcome)

		if copyError == nil {
			continue
		}

		if !service.continueOnError || errors.Is(copyError, context.Canceled) || errors.Is(copyError, context.DeadlineExceeded) {
			return result, copyError
		}

		service.logger.Warn(
			copyFailureContinuingMessage,
			zap.String(logFieldContentTypeConstant, string(contentType)),
			zap.Int(logFieldSourceIDConstant, sourceID),
			zap.Error(copyError),
		)
		failures = append(failures, copyError)

		if contextError := executionContext.Err(); contextError != nil {
			return result, errors.Join(append(failures, contextError)...)
		}
	}

	return result, errors.Join(failures...)
}

func (service *Service) logCopyStarted(contentType ContentType, sourceID int, sourceURL string) {
	service.logger.Info(
		copyStartedMessage,
		zap.String(logFieldContentTypeConstant, string(contentType)),
		zap.Int(logFieldSourceIDConstant, sourceID),
		zap.String(logFieldSourceURLConstant, sourceURL),
	)
}

func (service *Service) logCopyCompleted(contentType ContentType, sourceID int, destinationURL string) {
	service.logger.Info(
		copyCompletedMessage,
		zap.String(logFieldContentTypeConstant, string(contentType)),
		zap.Int(logFieldSourceIDConstant, sourceID),
		zap.String(logFieldDestinationURLConstant, destinationURL),
	)
}

// String renders the content type for messages.
func (contentType ContentType) String() string {
	return string(contentType)
}
