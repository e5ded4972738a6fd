package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Character は登場キャラクターの声の定義を保持します。
// 同じ Persona キーを再利用する限り、音声ジェネレーターは同一の声色を保証します。
type Character struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Persona      string `json:"persona"`       // 声のデザインに使う人物像の説明
	VoiceID      string `json:"voice_id"`      // クラウド側の既成ボイス名（任意）
	ReferenceURL string `json:"reference_url"` // 一貫性保持のための参照画像URL
	IsPrimary    bool   `json:"is_primary"`
}

// CharactersMap はIDや名前をキーとしたキャラクターの検索用マップなのだ。
type CharactersMap map[string]Character

// LoadCharacters は指定されたファイルパスからJSONを読み込み、キャラクターマップを返すのだ。
func LoadCharacters(path string) (CharactersMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("キャラクターファイルの読み込みに失敗したのだ: %w", err)
	}
	return GetCharacters(data)
}

// GetCharacters はJSONバイト列からキャラクターマップをパースして返します。
// この関数はステートレスであり、キャッシュを行いません。
func GetCharacters(charactersJSON []byte) (CharactersMap, error) {
	var chars CharactersMap
	if err := json.Unmarshal(charactersJSON, &chars); err != nil {
		return nil, fmt.Errorf("キャラクター情報のJSONパースに失敗しました: %w", err)
	}
	return chars, nil
}

// FindCharacter は 直接のIDからキャラクター情報を特定します。
func (m CharactersMap) FindCharacter(id string) *Character {
	if m == nil {
		return nil
	}
	if char, ok := m[id]; ok {
		res := char
		return &res
	}
	if char, ok := m[strings.ToLower(id)]; ok {
		res := char
		return &res
	}
	return nil
}

// GetPrimary はマップ内から IsPrimary が true のキャラクターを1人返します。
// 常に同じ結果を得るため、IDでソートした順に走査します。
func (m CharactersMap) GetPrimary() *Character {
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		char := m[k]
		if char.IsPrimary {
			res := char
			return &res
		}
	}

	return nil
}

// GetCharacterWithDefault はIDで検索し、見つからなければ Primary にフォールバックするのだ。
func (m CharactersMap) GetCharacterWithDefault(id string) *Character {
	if char := m.FindCharacter(id); char != nil {
		return char
	}
	return m.GetPrimary()
}

// String はキャラクターの情報を文字列で返すのだ。
func (c Character) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}
