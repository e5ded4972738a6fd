package caption

import "github.com/shouni/go-anime-kit/pkg/domain"

// Sanitize はアライナー由来の単語タイムスタンプを焼き込み可能な状態に整えます
// （対話モード）。アライナーは長さゼロの単語を返すことがあり、そのままでは
// カラオケセグメントが潰れるため、floorMs まで引き上げます。
//
// 規則:
//   - 長さが floorMs 未満の単語は end = start + floorMs に引き上げる
//   - 引き上げで次の単語と重なる場合は、次の単語の start を後ろへずらす（重なり禁止・単調増加の維持）
//   - セグメント・単語の end がクリップ尺を超える場合はクリップ末尾へクランプする
func Sanitize(segments []domain.CaptionSegment, clipDurationMs, floorMs int64) []domain.CaptionSegment {
	sanitized := make([]domain.CaptionSegment, 0, len(segments))

	for _, seg := range segments {
		if clipDurationMs > 0 && seg.StartMs >= clipDurationMs {
			// クリップの外で始まるセグメントは焼き込み対象にならない
			continue
		}

		fixed := seg
		fixed.Words = sanitizeWords(seg.Words, floorMs)

		if len(fixed.Words) > 0 {
			// セグメントの終端は単語列を覆うように追従させる
			if last := fixed.Words[len(fixed.Words)-1].EndMs; last > fixed.EndMs {
				fixed.EndMs = last
			}
		}
		if fixed.EndMs-fixed.StartMs < floorMs {
			fixed.EndMs = fixed.StartMs + floorMs
		}
		if clipDurationMs > 0 && fixed.EndMs > clipDurationMs {
			fixed.EndMs = clipDurationMs
		}

		// 玉突きで押し出された末尾の単語もセグメント終端の内側へ収める
		for i := range fixed.Words {
			if fixed.Words[i].EndMs > fixed.EndMs {
				fixed.Words[i].EndMs = fixed.EndMs
			}
			if fixed.Words[i].StartMs > fixed.Words[i].EndMs {
				fixed.Words[i].StartMs = fixed.Words[i].EndMs
			}
		}

		sanitized = append(sanitized, fixed)
	}

	return sanitized
}

// sanitizeWords は床値未満の単語を引き上げ、後続の単語を玉突きでずらすのだ。
func sanitizeWords(words []domain.WordSegment, floorMs int64) []domain.WordSegment {
	if len(words) == 0 {
		return nil
	}

	fixed := make([]domain.WordSegment, len(words))
	copy(fixed, words)

	for i := range fixed {
		if i > 0 && fixed[i].StartMs < fixed[i-1].EndMs {
			// 前の単語の引き上げと重なった分だけ後ろへずらす
			shift := fixed[i-1].EndMs - fixed[i].StartMs
			fixed[i].StartMs += shift
			fixed[i].EndMs += shift
		}
		if fixed[i].EndMs-fixed[i].StartMs < floorMs {
			fixed[i].EndMs = fixed[i].StartMs + floorMs
		}
	}

	return fixed
}
