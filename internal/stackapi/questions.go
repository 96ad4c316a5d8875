package stackapi

import (
	"context"
	"fmt"
	"net/http"
)

const (
	questionsPathConstant               = "/questions"
	questionPathTemplateConstant        = "/questions/%d"
	questionAnswersPathTemplateConstant = "/questions/%d/answers"
	questionIdentifierFieldNameConstant = "question_id"
	positiveIdentifierMessageConstant   = "identifier must be positive"
	listQuestionsOperationNameConstant  = OperationName("ListQuestions")
	getQuestionOperationNameConstant    = OperationName("GetQuestion")
	listAnswersOperationNameConstant    = OperationName("ListAnswers")
	createQuestionOperationNameConstant = OperationName("CreateQuestion")
	createAnswerOperationNameConstant   = OperationName("CreateAnswer")
)

// ListQuestions returns every question visible to the client in listing order.
func (client *Client) ListQuestions(executionContext context.Context) ([]Question, error) {
	return listAll[Question](executionContext, client, listQuestionsOperationNameConstant, questionsPathConstant)
}

// GetQuestion fetches a single question.
func (client *Client) GetQuestion(executionContext context.Context, questionID int) (Question, error) {
	if questionID <= 0 {
		return Question{}, InvalidInputError{FieldName: questionIdentifierFieldNameConstant, Message: positiveIdentifierMessageConstant}
	}

	var question Question
	requestError := client.execute(executionContext, apiRequest{
		operation: getQuestionOperationNameConstant,
		method:    http.MethodGet,
		path:      fmt.Sprintf(questionPathTemplateConstant, questionID),
	}, &question)
	if requestError != nil {
		return Question{}, requestError
	}
	return question, nil
}

// ListAnswers returns the answers of a question in listing order.
func (client *Client) ListAnswers(executionContext context.Context, questionID int) ([]Answer, error) {
	if questionID <= 0 {
		return nil, InvalidInputError{FieldName: questionIdentifierFieldNameConstant, Message: positiveIdentifierMessageConstant}
	}
	return listAll[Answer](executionContext, client, listAnswersOperationNameConstant, fmt.Sprintf(questionAnswersPathTemplateConstant, questionID))
}

// CreateQuestion creates a question attributed to the impersonated account.
func (client *Client) CreateQuestion(executionContext context.Context, draft QuestionDraft, impersonation ImpersonationToken) (Question, error) {
	if draft.Tags == nil {
		draft.Tags = []string{}
	}

	var created Question
	requestError := client.execute(executionContext, apiRequest{
		operation:     createQuestionOperationNameConstant,
		method:        http.MethodPost,
		path:          questionsPathConstant,
		payload:       draft,
		impersonation: &impersonation,
	}, &created)
	if requestError != nil {
		return Question{}, requestError
	}
	return created, nil
}

// CreateAnswer creates an answer under questionID attributed to the impersonated account.
func (client *Client) CreateAnswer(executionContext context.Context, questionID int, draft AnswerDraft, impersonation ImpersonationToken) (Answer, error) {
	if questionID <= 0 {
		return Answer{}, InvalidInputError{FieldName: questionIdentifierFieldNameConstant, Message: positiveIdentifierMessageConstant}
	}

	var created Answer
	requestError := client.execute(executionContext, apiRequest{
		operation:     createAnswerOperationNameConstant,
		method:        http.MethodPost,
		path:          fmt.Sprintf(questionAnswersPathTemplateConstant, questionID),
		payload:       draft,
		impersonation: &impersonation,
	}, &created)
	if requestError != nil {
		return Answer{}, requestError
	}
	return created, nil
}
