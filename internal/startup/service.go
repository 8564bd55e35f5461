// Package startup はスタートアップの登録・編集・削除とマップ上の配置を提供する。
package startup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/startupnetwork/internal/idgen"
	"github.com/hitoshi/startupnetwork/internal/logo"
	"github.com/hitoshi/startupnetwork/internal/model"
	"github.com/hitoshi/startupnetwork/internal/store"
)

// CollectionName はスタートアップを保存するコレクション名。
const CollectionName = "startups"

// LogoProcessor はロゴ画像の正規化・保存・削除のインターフェース。
// logo.Processorが実装する。
type LogoProcessor interface {
	Process(r io.Reader, contentType string) (string, error)
	Remove(name string) error
}

// Sanitizer はフォームのテキストからマークアップを除去するインターフェース。
// security.TextSanitizerが実装する。
type Sanitizer interface {
	Sanitize(text string) string
}

// Upload はアップロードされたロゴファイル。
type Upload struct {
	Reader      io.Reader
	ContentType string
}

// Filter は一覧取得の絞り込み条件。空の条件は無視される。
type Filter struct {
	Search string // 名前または説明に対する大文字小文字を区別しない部分一致
	Field  string // 分野名の完全一致
}

// Service はスタートアップのサービス層。
type Service struct {
	startups  *store.Collection[model.Startup]
	logos     LogoProcessor
	sanitizer Sanitizer
	clock     func() time.Time
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithSanitizer はテキスト入力のサニタイザを設定する。
func WithSanitizer(sanitizer Sanitizer) Option {
	return func(s *Service) { s.sanitizer = sanitizer }
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(st *store.Store, logos LogoProcessor, opts ...Option) *Service {
	s := &Service{
		startups: store.NewCollection[model.Startup](st, CollectionName, nil),
		logos:    logos,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List は条件に一致するスタートアップを保存順に返す。
func (s *Service) List(ctx context.Context, filter Filter) ([]model.Startup, error) {
	startups, err := s.startups.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("スタートアップの取得に失敗しました: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	fieldName := strings.TrimSpace(filter.Field)
	if search == "" && fieldName == "" {
		return startups, nil
	}

	matched := make([]model.Startup, 0, len(startups))
	for _, st := range startups {
		if search != "" &&
			!strings.Contains(strings.ToLower(st.StartupName), search) &&
			!strings.Contains(strings.ToLower(st.CanvasIdeaDescription), search) {
			continue
		}
		if fieldName != "" && !st.HasField(fieldName) {
			continue
		}
		matched = append(matched, st)
	}
	return matched, nil
}

// ReferencedLogos はいずれかのスタートアップが参照しているロゴファイル名の集合を返す。
// 別プロセスのワーカーから呼ばれるため、コレクションファイルは作成しない。
func (s *Service) ReferencedLogos(ctx context.Context) (map[string]struct{}, error) {
	startups, err := s.startups.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("スタートアップの取得に失敗しました: %w", err)
	}

	refs := make(map[string]struct{}, len(startups))
	for _, st := range startups {
		if st.LogoPath != "" {
			refs[st.LogoPath] = struct{}{}
		}
	}
	return refs, nil
}

// Get はIDでスタートアップを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Startup, error) {
	st, ok, err := s.startups.Find(ctx, byID(id))
	if err != nil {
		return nil, fmt.Errorf("スタートアップの取得に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewStartupNotFoundError(id)
	}
	return &st, nil
}

// Create はスタートアップを登録する。所有者はactorになる。
// 検証エラーはすべて収集して*model.ValidationErrorで返し、その場合この呼び出しで
// 保存したロゴは削除する。
func (s *Service) Create(ctx context.Context, actor model.Actor, in Input, upload *Upload) (*model.Startup, error) {
	if actor.Username == "" {
		return nil, model.NewUnauthorizedError()
	}

	// 1. 入力の正規化と検証
	in = s.clean(in)
	errs := Validate(in)

	// 2. ロゴの処理（他の検証エラーがあっても実行し、ロゴのエラーも併せて返す）
	logoName, logoErrs, err := s.processLogo(upload)
	if err != nil {
		return nil, err
	}
	errs = append(errs, logoErrs...)

	if len(errs) > 0 {
		s.removeLogo(logoName)
		return nil, model.NewValidationError(errs...)
	}

	// 3. レコードの作成
	id, err := idgen.NewID(idgen.StartupIDBytes)
	if err != nil {
		s.removeLogo(logoName)
		return nil, fmt.Errorf("スタートアップIDの生成に失敗しました: %w", err)
	}
	now := s.now()
	st := model.Startup{
		ID:            id,
		OwnerUsername: actor.Username,
		LogoPath:      logoName,
		Position:      model.Position{X: 0, Y: 0},
		CreatedAt:     now,
	}
	apply(&st, in, now)

	// 4. 保存
	if err := s.startups.Append(ctx, st); err != nil {
		s.removeLogo(logoName)
		return nil, fmt.Errorf("スタートアップの保存に失敗しました: %w", err)
	}

	slog.Info("startup created",
		slog.String("startup_id", st.ID),
		slog.String("owner", st.OwnerUsername),
	)
	return &st, nil
}

// Update はスタートアップの内容を置き換える。所有者または管理者のみ実行できる。
// ID、所有者、作成日時、位置は維持される。新しいロゴが保存された場合、古いロゴは
// 保存成功後に削除する。
func (s *Service) Update(ctx context.Context, actor model.Actor, id string, in Input, upload *Upload) (*model.Startup, error) {
	// 1. 存在確認と権限確認
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(current.OwnerUsername) {
		return nil, model.NewForbiddenError("Not authorized")
	}

	// 2. 入力の正規化と検証、ロゴの処理
	in = s.clean(in)
	errs := Validate(in)

	newLogo, logoErrs, err := s.processLogo(upload)
	if err != nil {
		return nil, err
	}
	errs = append(errs, logoErrs...)

	if len(errs) > 0 {
		s.removeLogo(newLogo)
		return nil, model.NewValidationError(errs...)
	}

	// 3. ロック区間内で最新のレコードに変更を適用する
	var updated model.Startup
	var oldLogo string
	err = s.startups.Update(ctx, func(startups []model.Startup) ([]model.Startup, error) {
		i := indexOf(startups, id)
		if i < 0 {
			return nil, model.NewStartupNotFoundError(id)
		}
		if !actor.CanModify(startups[i].OwnerUsername) {
			return nil, model.NewForbiddenError("Not authorized")
		}

		st := &startups[i]
		oldLogo = st.LogoPath
		apply(st, in, s.now())
		if newLogo != "" {
			st.LogoPath = newLogo
		}
		updated = *st
		return startups, nil
	})
	if err != nil {
		s.removeLogo(newLogo)
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("スタートアップの保存に失敗しました: %w", err)
	}

	// 4. 置き換えられた古いロゴの削除
	if newLogo != "" && oldLogo != "" && oldLogo != newLogo {
		s.removeLogo(oldLogo)
	}

	slog.Info("startup updated",
		slog.String("startup_id", id),
		slog.String("actor", actor.Username),
	)
	return &updated, nil
}

// Delete はスタートアップを削除する。管理者のみ実行できる。
// ロゴの削除に失敗してもエラーにはせず、ログに記録する。
func (s *Service) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin {
		return model.NewForbiddenError("Admin access required")
	}

	removed, err := s.startups.DeleteWhere(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("スタートアップの削除に失敗しました: %w", err)
	}
	if len(removed) == 0 {
		return model.NewStartupNotFoundError(id)
	}

	for _, st := range removed {
		s.removeLogo(st.LogoPath)
	}

	slog.Info("startup deleted",
		slog.String("startup_id", id),
		slog.String("actor", actor.Username),
	)
	return nil
}

// UpdatePosition はマップ上の位置だけを更新する。所有者または管理者のみ実行できる。
func (s *Service) UpdatePosition(ctx context.Context, actor model.Actor, id string, pos model.Position) error {
	err := s.startups.Update(ctx, func(startups []model.Startup) ([]model.Startup, error) {
		i := indexOf(startups, id)
		if i < 0 {
			return nil, model.NewStartupNotFoundError(id)
		}
		if !actor.CanModify(startups[i].OwnerUsername) {
			return nil, model.NewForbiddenError("Not authorized")
		}
		startups[i].Position = pos
		return startups, nil
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("位置の保存に失敗しました: %w", err)
	}
	return nil
}

// processLogo はアップロードがあればロゴを保存し、ファイル名を返す。
// 利用者に起因するエラーはメッセージとして返し、ロゴディレクトリへの書き込み失敗はerrorで返す。
func (s *Service) processLogo(upload *Upload) (string, []string, error) {
	if upload == nil || upload.Reader == nil {
		return "", nil, nil
	}
	if !logo.AllowedContentType(upload.ContentType) {
		return "", []string{MsgUnsupportedLogo}, nil
	}

	name, err := s.logos.Process(upload.Reader, upload.ContentType)
	switch {
	case err == nil:
		return name, nil, nil
	case errors.Is(err, logo.ErrUnsupportedType):
		return "", []string{MsgUnsupportedLogo}, nil
	case errors.Is(err, logo.ErrInvalidImage):
		reason := strings.TrimPrefix(err.Error(), logo.ErrInvalidImage.Error()+": ")
		return "", []string{msgLogoProcessingPrefix + reason}, nil
	default:
		return "", nil, fmt.Errorf("ロゴの保存に失敗しました: %w", err)
	}
}

// removeLogo はロゴを削除する。失敗はログに記録するだけにする。
func (s *Service) removeLogo(name string) {
	if name == "" {
		return
	}
	if err := s.logos.Remove(name); err != nil {
		slog.Warn("failed to remove logo",
			slog.String("logo", name),
			slog.String("error", err.Error()),
		)
	}
}

// clean はテキスト入力をサニタイズし、前後の空白を除く。
func (s *Service) clean(in Input) Input {
	text := func(v string) string {
		if s.sanitizer != nil {
			v = s.sanitizer.Sanitize(v)
		}
		return strings.TrimSpace(v)
	}

	fields := make([]string, 0, len(in.Fields))
	for _, f := range in.Fields {
		fields = append(fields, text(f))
	}

	return Input{
		StartupName:           text(in.StartupName),
		GoalOneSentence:       text(in.GoalOneSentence),
		WebsiteURL:            text(in.WebsiteURL),
		CanvasIdeaDescription: text(in.CanvasIdeaDescription),
		Fields:                fields,
		FounderName:           text(in.FounderName),
		FounderLinkedin:       text(in.FounderLinkedin),
		CofounderName:         text(in.CofounderName),
		CofounderLinkedin:     text(in.CofounderLinkedin),
	}
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// apply は正規化済みの入力をレコードに反映する。分野の重複はここで取り除く。
// 共同創業者は名前がある場合のみ設定し、ない場合は取り除く。
func apply(st *model.Startup, in Input, now time.Time) {
	st.StartupName = in.StartupName
	st.GoalOneSentence = in.GoalOneSentence
	st.WebsiteURL = in.WebsiteURL
	st.CanvasIdeaDescription = in.CanvasIdeaDescription
	st.Fields = normalizeFields(in.Fields)
	st.Founder = model.Founder{Name: in.FounderName, LinkedinURL: in.FounderLinkedin}
	st.Cofounder = nil
	if in.CofounderName != "" {
		st.Cofounder = &model.Founder{Name: in.CofounderName, LinkedinURL: in.CofounderLinkedin}
	}
	st.UpdatedAt = now
}

func byID(id string) func(model.Startup) bool {
	return func(st model.Startup) bool { return st.ID == id }
}

func indexOf(startups []model.Startup, id string) int {
	for i := range startups {
		if startups[i].ID == id {
			return i
		}
	}
	return -1
}

func isDomainError(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr)
}
