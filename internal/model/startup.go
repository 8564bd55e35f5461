package model

import "time"

// Position はマップ上の座標を表す（0〜100のパーセント値を想定）。
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Founder は創業者を表す。
type Founder struct {
	Name        string `json:"name"`
	LinkedinURL string `json:"linkedinUrl"`
}

// Startup はディレクトリに登録されたスタートアップを表す。
// Cofounderは名前とURLの両方が揃っている場合のみ設定される。
type Startup struct {
	ID                    string    `json:"id"`
	StartupName           string    `json:"startupName"`
	GoalOneSentence       string    `json:"goalOneSentence"`
	WebsiteURL            string    `json:"websiteUrl"`
	CanvasIdeaDescription string    `json:"canvasIdeaDescription"`
	Fields                []string  `json:"fields"`
	Founder               Founder   `json:"founder"`
	Cofounder             *Founder  `json:"cofounder,omitempty"`
	OwnerUsername         string    `json:"owner_username"`
	LogoPath              string    `json:"logoPath,omitempty"`
	Position              Position  `json:"position"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// HasField はスタートアップが指定の分野に属するかを返す。
func (s *Startup) HasField(name string) bool {
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Field は分野（タクソノミー）と、マップ上のその重心を表す。
type Field struct {
	Name  string  `json:"name"`
	Color string  `json:"color"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}
