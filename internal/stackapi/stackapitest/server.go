// Package stackapitest provides an in-memory twin of the knowledge-base REST API for tests.
package stackapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/temirov/stackmigrate/internal/stackapi"
)

const (
	apiRootPathConstant              = "/api/v3"
	teamRoutePatternConstant         = "/teams/{team}"
	authorizationHeaderConstant      = "Authorization"
	apiKeyHeaderConstant             = "X-API-Key"
	impersonationHeaderConstant      = "X-Impersonation-Token"
	bearerPrefixConstant             = "Bearer "
	defaultPageSizeConstant          = 100
	shareURLTemplateConstant         = "%s/%s/%d"
	tokenTemplateConstant            = "impersonation-%d-%d"
	questionsSegmentConstant         = "questions"
	articlesSegmentConstant          = "articles"
	answersSegmentConstant           = "answers"
	firstGeneratedIdentifierConstant = 1000
	missingTitleMessageConstant      = "title is required"
)

// WriteKind names the kind of record created through the twin.
type WriteKind string

// Recorded write kinds.
const (
	WriteKindQuestion WriteKind = WriteKind("question")
	WriteKindAnswer   WriteKind = WriteKind("answer")
	WriteKindArticle  WriteKind = WriteKind("article")
)

// RecordedWrite captures one create call received by the twin.
type RecordedWrite struct {
	Kind             WriteKind
	CreatedID        int
	ParentQuestionID int
	AccountID        int
	Team             string
	Title            string
	Body             string
	Tags             []string
	ArticleType      stackapi.ArticleType
}

// Server is a knowledge-base twin backed by httptest.
type Server struct {
	httpServer *httptest.Server

	// AccessToken, when non-empty, is required as the bearer token on every request.
	AccessToken string
	// APIKey, when non-empty, is required on impersonation and write requests.
	APIKey string

	mutex                 sync.Mutex
	questions             []stackapi.Question
	answers               map[int][]stackapi.Answer
	articles              []stackapi.Article
	failures              map[string]int
	tokens                map[string]int
	writes                []RecordedWrite
	impersonationRequests []int
	requestLog            []string
	postedAPIKeys         []string
	nextIdentifier        int
}

// NewServer starts a twin and registers its shutdown with the test.
func NewServer(testInstance testing.TB) *Server {
	testInstance.Helper()

	server := &Server{
		answers:        make(map[int][]stackapi.Answer),
		failures:       make(map[string]int),
		tokens:         make(map[string]int),
		nextIdentifier: firstGeneratedIdentifierConstant,
	}

	router := chi.NewRouter()
	router.Use(server.recordRequest)
	router.Use(server.injectFailures)
	router.Use(server.authenticate)
	router.Route(apiRootPathConstant, func(apiRouter chi.Router) {
		server.routes(apiRouter)
		apiRouter.Route(teamRoutePatternConstant, server.routes)
	})

	server.httpServer = httptest.NewServer(router)
	testInstance.Cleanup(server.httpServer.Close)

	return server
}

func (server *Server) routes(router chi.Router) {
	router.Get("/questions", server.listQuestions)
	router.Post("/questions", server.createQuestion)
	router.Get("/questions/{questionID}", server.getQuestion)
	router.Get("/questions/{questionID}/answers", server.listAnswers)
	router.Post("/questions/{questionID}/answers", server.createAnswer)
	router.Get("/articles", server.listArticles)
	router.Post("/articles", server.createArticle)
	router.Get("/articles/{articleID}", server.getArticle)
	router.Post("/impersonation/tokens", server.issueToken)
}

// URL returns the base URL of the twin.
func (server *Server) URL() string {
	return server.httpServer.URL
}

// AddQuestion seeds a question and its answers in listing order.
func (server *Server) AddQuestion(question stackapi.Question, answers ...stackapi.Answer) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	if len(question.ShareURL) == 0 {
		question.ShareURL = server.shareURL(questionsSegmentConstant, question.ID)
	}
	server.questions = append(server.questions, question)
	for _, answer := range answers {
		answer.QuestionID = question.ID
		if len(answer.ShareURL) == 0 {
			answer.ShareURL = server.shareURL(answersSegmentConstant, answer.ID)
		}
		server.answers[question.ID] = append(server.answers[question.ID], answer)
	}
}

// AddArticle seeds an article.
func (server *Server) AddArticle(article stackapi.Article) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	if len(article.ShareURL) == 0 {
		article.ShareURL = server.shareURL(articlesSegmentConstant, article.ID)
	}
	server.articles = append(server.articles, article)
}

// FailRequests makes every request matching method and path (relative to the API root, e.g.
// "/questions/5") respond with statusCode.
func (server *Server) FailRequests(method string, path string, statusCode int) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.failures[failureKey(method, path)] = statusCode
}

// Writes returns the create calls received so far in arrival order.
func (server *Server) Writes() []RecordedWrite {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]RecordedWrite(nil), server.writes...)
}

// ImpersonationRequests returns the account identifiers tokens were requested for, in order.
func (server *Server) ImpersonationRequests() []int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]int(nil), server.impersonationRequests...)
}

// RequestLog returns "METHOD /path" entries for every request received.
func (server *Server) RequestLog() []string {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]string(nil), server.requestLog...)
}

// PostedAPIKeys returns the X-API-Key header of every POST request received, empty when absent.
func (server *Server) PostedAPIKeys() []string {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]string(nil), server.postedAPIKeys...)
}

func (server *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		server.mutex.Lock()
		server.requestLog = append(server.requestLog, request.Method+" "+request.URL.Path)
		if request.Method == http.MethodPost {
			server.postedAPIKeys = append(server.postedAPIKeys, request.Header.Get(apiKeyHeaderConstant))
		}
		server.mutex.Unlock()
		next.ServeHTTP(responseWriter, request)
	})
}

func (server *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		relativePath := relativeAPIPath(request.URL.Path)
		server.mutex.Lock()
		statusCode, shouldFail := server.failures[failureKey(request.Method, relativePath)]
		server.mutex.Unlock()
		if shouldFail {
			writeError(responseWriter, statusCode, http.StatusText(statusCode))
			return
		}
		next.ServeHTTP(responseWriter, request)
	})
}

func (server *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if len(server.AccessToken) > 0 && request.Header.Get(authorizationHeaderConstant) != bearerPrefixConstant+server.AccessToken {
			writeError(responseWriter, http.StatusUnauthorized, "invalid access token")
			return
		}
		if len(server.APIKey) > 0 && request.Method == http.MethodPost && request.Header.Get(apiKeyHeaderConstant) != server.APIKey {
			writeError(responseWriter, http.StatusForbidden, "api key required")
			return
		}
		next.ServeHTTP(responseWriter, request)
	})
}

func (server *Server) listQuestions(responseWriter http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	questions := append([]stackapi.Question(nil), server.questions...)
	server.mutex.Unlock()
	writePage(responseWriter, request, questions)
}

func (server *Server) getQuestion(responseWriter http.ResponseWriter, request *http.Request) {
	questionID, parsed := identifierParameter(responseWriter, request, "questionID")
	if !parsed {
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()
	for _, question := range server.questions {
		if question.ID == questionID {
			writeJSON(responseWriter, http.StatusOK, question)
			return
		}
	}
	writeError(responseWriter, http.StatusNotFound, "question not found")
}

func (server *Server) listAnswers(responseWriter http.ResponseWriter, request *http.Request) {
	questionID, parsed := identifierParameter(responseWriter, request, "questionID")
	if !parsed {
		return
	}

	server.mutex.Lock()
	answers := append([]stackapi.Answer(nil), server.answers[questionID]...)
	server.mutex.Unlock()
	writePage(responseWriter, request, answers)
}

func (server *Server) createQuestion(responseWriter http.ResponseWriter, request *http.Request) {
	var draft stackapi.QuestionDraft
	if !decodeBody(responseWriter, request, &draft) {
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()

	accountID, impersonated := server.impersonatedAccount(responseWriter, request)
	if !impersonated {
		return
	}
	if len(strings.TrimSpace(draft.Title)) == 0 {
		writeError(responseWriter, http.StatusBadRequest, missingTitleMessageConstant)
		return
	}

	created := stackapi.Question{
		ID:    server.allocateIdentifier(),
		Title: draft.Title,
		Body:  draft.Body,
		Owner: stackapi.KnownOwner(accountID),
	}
	for _, tagName := range draft.Tags {
		created.Tags = append(created.Tags, stackapi.Tag{Name: tagName})
	}
	created.ShareURL = server.shareURL(questionsSegmentConstant, created.ID)
	server.questions = append(server.questions, created)
	server.writes = append(server.writes, RecordedWrite{
		Kind:      WriteKindQuestion,
		CreatedID: created.ID,
		AccountID: accountID,
		Team:      chi.URLParam(request, "team"),
		Title:     draft.Title,
		Body:      draft.Body,
		Tags:      append([]string(nil), draft.Tags...),
	})

	writeJSON(responseWriter, http.StatusCreated, created)
}

func (server *Server) createAnswer(responseWriter http.ResponseWriter, request *http.Request) {
	questionID, parsed := identifierParameter(responseWriter, request, "questionID")
	if !parsed {
		return
	}

	var draft stackapi.AnswerDraft
	if !decodeBody(responseWriter, request, &draft) {
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()

	if !server.questionExists(questionID) {
		writeError(responseWriter, http.StatusNotFound, "question not found")
		return
	}

	accountID, impersonated := server.impersonatedAccount(responseWriter, request)
	if !impersonated {
		return
	}

	created := stackapi.Answer{
		ID:         server.allocateIdentifier(),
		QuestionID: questionID,
		Body:       draft.Body,
		Owner:      stackapi.KnownOwner(accountID),
	}
	created.ShareURL = server.shareURL(answersSegmentConstant, created.ID)
	server.answers[questionID] = append(server.answers[questionID], created)
	server.writes = append(server.writes, RecordedWrite{
		Kind:             WriteKindAnswer,
		CreatedID:        created.ID,
		ParentQuestionID: questionID,
		AccountID:        accountID,
		Team:             chi.URLParam(request, "team"),
		Body:             draft.Body,
	})

	writeJSON(responseWriter, http.StatusCreated, created)
}

func (server *Server) listArticles(responseWriter http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	articles := append([]stackapi.Article(nil), server.articles...)
	server.mutex.Unlock()
	writePage(responseWriter, request, articles)
}

func (server *Server) getArticle(responseWriter http.ResponseWriter, request *http.Request) {
	articleID, parsed := identifierParameter(responseWriter, request, "articleID")
	if !parsed {
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()
	for _, article := range server.articles {
		if article.ID == articleID {
			writeJSON(responseWriter, http.StatusOK, article)
			return
		}
	}
	writeError(responseWriter, http.StatusNotFound, "article not found")
}

func (server *Server) createArticle(responseWriter http.ResponseWriter, request *http.Request) {
	var draft stackapi.ArticleDraft
	if !decodeBody(responseWriter, request, &draft) {
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()

	accountID, impersonated := server.impersonatedAccount(responseWriter, request)
	if !impersonated {
		return
	}
	if len(strings.TrimSpace(draft.Title)) == 0 {
		writeError(responseWriter, http.StatusBadRequest, missingTitleMessageConstant)
		return
	}

	created := stackapi.Article{
		ID:    server.allocateIdentifier(),
		Title: draft.Title,
		Body:  draft.Body,
		Type:  draft.Type,
		Owner: stackapi.KnownOwner(accountID),
	}
	for _, tagName := range draft.Tags {
		created.Tags = append(created.Tags, stackapi.Tag{Name: tagName})
	}
	created.ShareURL = server.shareURL(articlesSegmentConstant, created.ID)
	server.articles = append(server.articles, created)
	server.writes = append(server.writes, RecordedWrite{
		Kind:        WriteKindArticle,
		CreatedID:   created.ID,
		AccountID:   accountID,
		Team:        chi.URLParam(request, "team"),
		Title:       draft.Title,
		Body:        draft.Body,
		Tags:        append([]string(nil), draft.Tags...),
		ArticleType: draft.Type,
	})

	writeJSON(responseWriter, http.StatusCreated, created)
}

func (server *Server) issueToken(responseWriter http.ResponseWriter, request *http.Request) {
	var payload struct {
		AccountID int `json:"accountId"`
	}
	if !decodeBody(responseWriter, request, &payload) {
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()

	server.impersonationRequests = append(server.impersonationRequests, payload.AccountID)
	if payload.AccountID <= 0 {
		writeError(responseWriter, http.StatusBadRequest, "unknown account")
		return
	}

	tokenValue := fmt.Sprintf(tokenTemplateConstant, payload.AccountID, len(server.impersonationRequests))
	server.tokens[tokenValue] = payload.AccountID
	writeJSON(responseWriter, http.StatusOK, map[string]string{"token": tokenValue})
}

func (server *Server) impersonatedAccount(responseWriter http.ResponseWriter, request *http.Request) (int, bool) {
	accountID, known := server.tokens[request.Header.Get(impersonationHeaderConstant)]
	if !known {
		writeError(responseWriter, http.StatusUnauthorized, "impersonation token required")
		return 0, false
	}
	return accountID, true
}

func (server *Server) questionExists(questionID int) bool {
	for _, question := range server.questions {
		if question.ID == questionID {
			return true
		}
	}
	return false
}

func (server *Server) allocateIdentifier() int {
	server.nextIdentifier++
	return server.nextIdentifier
}

func (server *Server) shareURL(segment string, identifier int) string {
	baseURL := ""
	if server.httpServer != nil {
		baseURL = server.httpServer.URL
	}
	return fmt.Sprintf(shareURLTemplateConstant, baseURL, segment, identifier)
}

func writePage[Item any](responseWriter http.ResponseWriter, request *http.Request, items []Item) {
	pageNumber := positiveQueryValue(request, "page", 1)
	pageSize := positiveQueryValue(request, "pageSize", defaultPageSizeConstant)

	totalPages := (len(items) + pageSize - 1) / pageSize
	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	writeJSON(responseWriter, http.StatusOK, map[string]any{
		"items":      items[start:end],
		"page":       pageNumber,
		"pageSize":   pageSize,
		"totalPages": totalPages,
		"totalCount": len(items),
	})
}

func positiveQueryValue(request *http.Request, name string, fallback int) int {
	parsedValue, parseError := strconv.Atoi(request.URL.Query().Get(name))
	if parseError != nil || parsedValue <= 0 {
		return fallback
	}
	return parsedValue
}

func identifierParameter(responseWriter http.ResponseWriter, request *http.Request, name string) (int, bool) {
	identifier, parseError := strconv.Atoi(chi.URLParam(request, name))
	if parseError != nil {
		writeError(responseWriter, http.StatusBadRequest, "invalid identifier")
		return 0, false
	}
	return identifier, true
}

func decodeBody(responseWriter http.ResponseWriter, request *http.Request, target any) bool {
	if decodingError := json.NewDecoder(request.Body).Decode(target); decodingError != nil {
		writeError(responseWriter, http.StatusBadRequest, decodingError.Error())
		return false
	}
	return true
}

func writeJSON(responseWriter http.ResponseWriter, statusCode int, payload any) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(statusCode)
	_ = json.NewEncoder(responseWriter).Encode(payload)
}

func writeError(responseWriter http.ResponseWriter, statusCode int, message string) {
	writeJSON(responseWriter, statusCode, map[string]string{"error": message})
}

func failureKey(method string, path string) string {
	return method + " " + path
}

// relativeAPIPath strips the API root and any team scope from a request path.
func relativeAPIPath(requestPath string) string {
	relativePath := strings.TrimPrefix(requestPath, apiRootPathConstant)
	if strings.HasPrefix(relativePath, "/teams/") {
		remainder := strings.TrimPrefix(relativePath, "/teams/")
		if separatorIndex := strings.Index(remainder, "/"); separatorIndex >= 0 {
			return remainder[separatorIndex:]
		}
		return "/"
	}
	return relativePath
}
