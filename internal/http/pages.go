package http

import (
	"context"
	"mime/multipart"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"legacypages/app/internal/identity"
)

type pageFormInput struct {
	RawBody multipart.Form
}

type pageIDInput struct {
	ID string `path:"id"`
}

type replacePageInput struct {
	ID      string `path:"id"`
	RawBody multipart.Form
}

type pageIDBody struct {
	ID string `json:"id"`
}

type pageIDOutput struct {
	Status int
	Body   pageIDBody
}

type ownedPageOutput struct {
	Body struct {
		Page *pageBody `json:"page"`
	}
}

type ownedPageDetailOutput struct {
	Body struct {
		Page *pageDetailBody `json:"page"`
	}
}

type pageDetailOutput struct {
	Body *pageDetailBody
}

type successOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

func (s *Server) registerPageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-page",
		Method:        stdhttp.MethodPost,
		Path:          "/pages",
		Summary:       "Create the caller's legacy page",
		DefaultStatus: stdhttp.StatusCreated,
		MaxBodyBytes:  s.maxUploadBytes,
		Errors:        []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusNotFound},
	}, s.createPageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-owned-page",
		Method:      stdhttp.MethodGet,
		Path:        "/pages",
		Summary:     "Fetch the caller's page without its dependents",
		Errors:      []int{stdhttp.StatusUnauthorized},
	}, s.ownedPageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "check-owned-page",
		Method:      stdhttp.MethodGet,
		Path:        "/pages/check",
		Summary:     "Fetch the caller's page with its dependents",
		Errors:      []int{stdhttp.StatusUnauthorized},
	}, s.checkOwnedPageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-page",
		Method:      stdhttp.MethodGet,
		Path:        "/pages/{id}",
		Summary:     "Fetch a page with its dependents",
		Errors:      []int{stdhttp.StatusNotFound},
	}, s.getPageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:  "replace-page",
		Method:       stdhttp.MethodPut,
		Path:         "/pages/{id}",
		Summary:      "Replace the caller's page",
		MaxBodyBytes: s.maxUploadBytes,
		Errors:       []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusNotFound},
	}, s.replacePageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-page",
		Method:      stdhttp.MethodDelete,
		Path:        "/pages/{id}",
		Summary:     "Delete the caller's page and everything attached to it",
		Errors:      []int{stdhttp.StatusUnauthorized, stdhttp.StatusForbidden, stdhttp.StatusNotFound},
	}, s.deletePageHandler)
}

func (s *Server) createPageHandler(ctx context.Context, input *pageFormInput) (*pageIDOutput, error) {
	sub, err := decodeSubmission(&input.RawBody)
	if err != nil {
		return nil, s.apiError(ctx, err, "decoding page submission", nil)
	}

	page, err := s.pages.Create(ctx, identity.CallerFromContext(ctx), sub)
	if err != nil {
		return nil, s.apiError(ctx, err, "creating legacy page", logrus.Fields{"slug": sub.Slug})
	}

	out := &pageIDOutput{Status: stdhttp.StatusCreated}
	out.Body.ID = page.ID
	return out, nil
}

func (s *Server) ownedPageHandler(ctx context.Context, _ *struct{}) (*ownedPageOutput, error) {
	page, err := s.pages.GetOwned(ctx, identity.CallerFromContext(ctx), false)
	if err != nil {
		return nil, s.apiError(ctx, err, "fetching owned page", nil)
	}

	out := &ownedPageOutput{}
	out.Body.Page = newPageBody(page)
	return out, nil
}

func (s *Server) checkOwnedPageHandler(ctx context.Context, _ *struct{}) (*ownedPageDetailOutput, error) {
	page, err := s.pages.GetOwned(ctx, identity.CallerFromContext(ctx), true)
	if err != nil {
		return nil, s.apiError(ctx, err, "checking owned page", nil)
	}

	out := &ownedPageDetailOutput{}
	out.Body.Page = newPageDetailBody(page)
	return out, nil
}

func (s *Server) getPageHandler(ctx context.Context, input *pageIDInput) (*pageDetailOutput, error) {
	id := strings.TrimSpace(input.ID)
	page, err := s.pages.Get(ctx, id)
	if err != nil {
		return nil, s.apiError(ctx, err, "fetching legacy page", logrus.Fields{"page_id": id})
	}

	return &pageDetailOutput{Body: newPageDetailBody(page)}, nil
}

func (s *Server) replacePageHandler(ctx context.Context, input *replacePageInput) (*pageIDOutput, error) {
	id := strings.TrimSpace(input.ID)
	sub, err := decodeSubmission(&input.RawBody)
	if err != nil {
		return nil, s.apiError(ctx, err, "decoding page submission", logrus.Fields{"page_id": id})
	}

	page, err := s.pages.Replace(ctx, identity.CallerFromContext(ctx), id, sub)
	if err != nil {
		return nil, s.apiError(ctx, err, "replacing legacy page", logrus.Fields{"page_id": id, "slug": sub.Slug})
	}

	out := &pageIDOutput{Status: stdhttp.StatusOK}
	out.Body.ID = page.ID
	return out, nil
}

func (s *Server) deletePageHandler(ctx context.Context, input *pageIDInput) (*successOutput, error) {
	id := strings.TrimSpace(input.ID)
	if err := s.pages.Delete(ctx, identity.CallerFromContext(ctx), id); err != nil {
		return nil, s.apiError(ctx, err, "deleting legacy page", logrus.Fields{"page_id": id})
	}

	out := &successOutput{}
	out.Body.Success = true
	return out, nil
}
