package stackapi

import (
	"context"
	"fmt"
	"net/http"
)

const (
	articlesPathConstant               = "/articles"
	articlePathTemplateConstant        = "/articles/%d"
	articleIdentifierFieldNameConstant = "article_id"
	listArticlesOperationNameConstant  = OperationName("ListArticles")
	getArticleOperationNameConstant    = OperationName("GetArticle")
	createArticleOperationNameConstant = OperationName("CreateArticle")
)

// ListArticles returns every article visible to the client in listing order.
func (client *Client) ListArticles(executionContext context.Context) ([]Article, error) {
	return listAll[Article](executionContext, client, listArticlesOperationNameConstant, articlesPathConstant)
}

// GetArticle fetches a single article.
func (client *Client) GetArticle(executionContext context.Context, articleID int) (Article, error) {
	if articleID <= 0 {
		return Article{}, InvalidInputError{FieldName: articleIdentifierFieldNameConstant, Message: positiveIdentifierMessageConstant}
	}

	var article Article
	requestError := client.execute(executionContext, apiRequest{
		operation: getArticleOperationNameConstant,
		method:    http.MethodGet,
		path:      fmt.Sprintf(articlePathTemplateConstant, articleID),
	}, &article)
	if requestError != nil {
		return Article{}, requestError
	}
	return article, nil
}

// CreateArticle creates an article attributed to the impersonated account. The type is sent as given.
func (client *Client) CreateArticle(executionContext context.Context, draft ArticleDraft, impersonation ImpersonationToken) (Article, error) {
	if draft.Tags == nil {
		draft.Tags = []string{}
	}

	var created Article
	requestError := client.execute(executionContext, apiRequest{
		operation:     createArticleOperationNameConstant,
		method:        http.MethodPost,
		path:          articlesPathConstant,
		payload:       draft,
		impersonation: &impersonation,
	}, &created)
	if requestError != nil {
		return Article{}, requestError
	}
	return created, nil
}
