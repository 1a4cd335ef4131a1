package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/document"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/storage"
)

// QRSide is the pixel size of the QR code served on its own.
const QRSide = 300

// DocumentService produces pass QR codes and pass documents and manages
// the pass templates they are printed on.
type DocumentService struct {
	Passes    PassStore
	Templates PassTemplateStore
	Store     storage.Store
	Encrypter document.Encrypter
}

func (s *DocumentService) encrypter() document.Encrypter {
	if s.Encrypter == nil {
		return document.PlainText{}
	}
	return s.Encrypter
}

// PassQR renders the QR code of a pass visible to a.
func (s *DocumentService) PassQR(ctx context.Context, a Actor, id uint64) ([]byte, error) {
	p, err := s.Passes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(a, &p); err != nil {
		return nil, err
	}
	return document.QRPNG(&p, s.encrypter(), QRSide)
}

// PassDocument returns the stored document of a pass visible to a.
func (s *DocumentService) PassDocument(ctx context.Context, a Actor, id uint64) ([]byte, error) {
	p, err := s.Passes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(a, &p); err != nil {
		return nil, err
	}
	if p.DocumentKey == nil {
		return nil, repository.ErrNotFound
	}
	b, err := s.Store.Get(ctx, *p.DocumentKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, repository.ErrNotFound
	}
	return b, err
}

// GeneratePassDocument prints p on the latest pass template, stores the
// result and records its key on the pass.
func (s *DocumentService) GeneratePassDocument(ctx context.Context, p *model.Pass) (string, error) {
	tpl, err := s.Templates.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		logIntegrity(document.ErrNoPassTemplate, log.Fields{"pass_id": p.ID})
		return "", document.ErrNoPassTemplate
	}
	if err != nil {
		return "", err
	}
	raw, err := s.Store.Get(ctx, tpl.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("load pass template %d: %w", tpl.Version, err)
	}
	card, err := document.PassCard(raw, p, s.encrypter())
	if err != nil {
		return "", err
	}
	key := document.PassCardKey(p)
	if err := s.Store.Put(ctx, key, "image/png", card); err != nil {
		return "", err
	}
	if err := s.Passes.SetDocumentKey(ctx, p.ID, key); err != nil {
		return "", err
	}
	p.DocumentKey = &key
	log.WithFields(log.Fields{"pass_id": p.ID, "key": key, "template_version": tpl.Version}).Info("pass document generated")
	return key, nil
}

// UploadTemplate stores a new pass template image as the next version.
func (s *DocumentService) UploadTemplate(ctx context.Context, body []byte) (model.PassTemplate, error) {
	format, err := document.CheckTemplate(body)
	if err != nil {
		return model.PassTemplate{}, err
	}
	t := model.PassTemplate{ObjectKey: fmt.Sprintf("templates/%s.%s", uuid.NewString(), format)}
	if err := s.Store.Put(ctx, t.ObjectKey, "image/"+format, body); err != nil {
		return model.PassTemplate{}, err
	}
	if err := s.Templates.Create(ctx, &t); err != nil {
		return model.PassTemplate{}, err
	}
	return t, nil
}

func (s *DocumentService) ListTemplates(ctx context.Context) ([]model.PassTemplate, error) {
	return s.Templates.List(ctx)
}
