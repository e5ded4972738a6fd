package generator

import (
	"context"
	"fmt"
	"sync"

	"github.com/shouni/go-anime-kit/pkg/domain"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// AnimeComposer は、クリップ・音声・楽曲の各ジェネレーターと
// 話者ごとの音声リソースキャッシュを束ねる中核コンポーネントです。
type AnimeComposer struct {
	ClipGenerator    ClipGenerator
	SpeechGenerator  SpeechGenerator
	MusicGenerator   MusicGenerator
	Aligner          Aligner
	CharactersMap    domain.CharactersMap
	RateLimiter      *rate.Limiter
	VoiceResourceMap map[string]string // CharacterID -> 解決済み音声リソース識別子
	mu               sync.RWMutex
	prepareGroup     singleflight.Group
}

// NewAnimeComposer は AnimeComposer の新しいインスタンスを初期化済みの状態で生成します。
func NewAnimeComposer(
	clipGen ClipGenerator,
	speechGen SpeechGenerator,
	musicGen MusicGenerator,
	aligner Aligner,
	cm domain.CharactersMap,
	limiter *rate.Limiter,
) *AnimeComposer {
	return &AnimeComposer{
		ClipGenerator:    clipGen,
		SpeechGenerator:  speechGen,
		MusicGenerator:   musicGen,
		Aligner:          aligner,
		CharactersMap:    cm,
		RateLimiter:      limiter,
		VoiceResourceMap: make(map[string]string),
	}
}

// PrepareVoiceResources はパネルに登場する全話者の音声リソースを事前に解決します。
// 各話者の解決処理を errgroup により並列で実行し、ロックの保持時間を最小化します。
func (ac *AnimeComposer) PrepareVoiceResources(ctx context.Context, panels []domain.Panel) error {
	uniqueSpeakerIDs := domain.Panels(panels).UniqueSpeakerIDs()
	cm := ac.CharactersMap
	eg, egCtx := errgroup.WithContext(ctx)

	for _, id := range uniqueSpeakerIDs {
		speakerID := id
		eg.Go(func() error {
			char := cm.GetCharacterWithDefault(speakerID)
			if char == nil || char.VoiceID == "" {
				return nil
			}

			_, err := ac.getOrPrepareVoice(egCtx, char)
			if err != nil {
				return fmt.Errorf("failed to prepare voice for character %s (resolved from speaker %s): %w", char.ID, speakerID, err)
			}
			return nil
		})
	}

	return eg.Wait()
}

// getOrPrepareVoice は内部的なキャッシュを利用し、必要に応じて音声リソースの解決を実行します（非公開メソッド）。
func (ac *AnimeComposer) getOrPrepareVoice(ctx context.Context, char *domain.Character) (string, error) {
	// RLock でキャッシュ（マップ）を素早く確認
	ac.mu.RLock()
	uri, ok := ac.VoiceResourceMap[char.ID]
	ac.mu.RUnlock()
	if ok {
		return uri, nil
	}

	val, err, _ := ac.prepareGroup.Do(char.ID, func() (interface{}, error) {
		// singleflight で待機中に他のゴルーチンが解決を完了させている可能性があるため、コールバック内で再度マップを確認
		ac.mu.RLock()
		existing, ok := ac.VoiceResourceMap[char.ID]
		ac.mu.RUnlock()
		if ok {
			return existing, nil
		}

		// 本当に未解決の場合のみ、重い I/O 処理を実行
		resolved, prepErr := ac.SpeechGenerator.PrepareVoice(ctx, char)
		if prepErr != nil {
			return nil, prepErr
		}

		// 結果を永続的なキャッシュマップに保存
		ac.mu.Lock()
		ac.VoiceResourceMap[char.ID] = resolved
		ac.mu.Unlock()

		return resolved, nil
	})

	if err != nil {
		return "", err
	}

	uri, ok = val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return uri, nil
}

// VoiceResource は解決済みの音声リソース識別子をキャッシュから返します。
func (ac *AnimeComposer) VoiceResource(charID string) string {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.VoiceResourceMap[charID]
}
