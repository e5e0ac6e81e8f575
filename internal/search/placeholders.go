package search

import "math/rand/v2"

// Placeholders 输入为空时使用的示例句子
var Placeholders = []string{
	"월요일 출근하기 싫어",
	"퇴근하고 싶다",
	"배고파 죽겠어",
	"커피 없이 못 살아",
}

// RandomPlaceholder 随机一个示例句子
func RandomPlaceholder() string {
	return Placeholders[rand.IntN(len(Placeholders))]
}
