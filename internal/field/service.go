// Package field は分野（タクソノミー）とマップ上の重心位置を管理する。
package field

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/startupnetwork/internal/model"
	"github.com/hitoshi/startupnetwork/internal/store"
)

// CollectionName は分野を保存するコレクション名。
const CollectionName = "fields"

// DefaultFields は初期状態の分野一覧を返す。呼び出しごとに新しいスライスを返す。
func DefaultFields() []model.Field {
	return []model.Field{
		{Name: "AI /ML", Color: "#3B82F6", X: 50, Y: 20},
		{Name: "Education", Color: "#10B981", X: 85, Y: 35},
		{Name: "Sport", Color: "#F59E0B", X: 85, Y: 65},
		{Name: "Security", Color: "#EF4444", X: 50, Y: 80},
		{Name: "Food", Color: "#8B5CF6", X: 15, Y: 65},
		{Name: "Media", Color: "#EC4899", X: 15, Y: 35},
		{Name: "Data", Color: "#06B6D4", X: 50, Y: 50},
		{Name: "Health Care", Color: "#14B8A6", X: 70, Y: 50},
	}
}

// Service は分野の参照と重心の移動を提供する。
type Service struct {
	fields *store.Collection[model.Field]
}

// NewService はServiceの新しいインスタンスを生成する。
// コレクションが存在しない場合は初回読み込み時にDefaultFieldsで初期化される。
func NewService(st *store.Store) *Service {
	return &Service{
		fields: store.NewCollection(st, CollectionName, DefaultFields),
	}
}

// List はすべての分野を保存順に返す。
func (s *Service) List(ctx context.Context) ([]model.Field, error) {
	fields, err := s.fields.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("分野の取得に失敗しました: %w", err)
	}
	return fields, nil
}

// UpdatePosition は分野の重心を移動する。管理者のみ実行できる。
func (s *Service) UpdatePosition(ctx context.Context, actor model.Actor, name string, pos model.Position) error {
	if !actor.IsAdmin {
		return model.NewForbiddenError("Admin access required")
	}

	n, err := s.fields.UpdateWhere(ctx,
		func(f model.Field) bool { return f.Name == name },
		func(f *model.Field) {
			f.X = pos.X
			f.Y = pos.Y
		},
	)
	if err != nil {
		return fmt.Errorf("分野の更新に失敗しました: %w", err)
	}
	if n == 0 {
		return model.NewFieldNotFoundError(name)
	}

	slog.Info("field centroid moved",
		slog.String("field", name),
		slog.Float64("x", pos.X),
		slog.Float64("y", pos.Y),
	)
	return nil
}

// EnsureDefaults は分野が1件もない場合にDefaultFieldsを書き込む。
// 起動時に呼び出し、ファイルの初期化も兼ねる。
func (s *Service) EnsureDefaults(ctx context.Context) error {
	seeded := false
	err := s.fields.Update(ctx, func(fields []model.Field) ([]model.Field, error) {
		if len(fields) > 0 {
			return nil, store.ErrNoChange
		}
		seeded = true
		return DefaultFields(), nil
	})
	if err != nil {
		return fmt.Errorf("分野の初期化に失敗しました: %w", err)
	}
	if seeded {
		slog.Info("default fields seeded", slog.Int("count", len(DefaultFields())))
	}
	return nil
}
