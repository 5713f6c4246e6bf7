package models

import (
	"strconv"
	"strings"
)

// ItemSeq 解析 id 的数字后缀：t12 -> 12。前缀不符或非数字返回 false。
func ItemSeq(id string, t ItemType) (int, bool) {
	p := t.Prefix()
	if p == "" || !strings.HasPrefix(id, p) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(p):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextItemID 已知最大序号 + 1，不做唯一性校验
func NextItemID(t ItemType, maxSeq int) string {
	return t.Prefix() + strconv.Itoa(maxSeq+1)
}
