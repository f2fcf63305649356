package service

import (
	"strings"
	"testing"
)

func TestRewriteTypos(t *testing.T) {
	r := NewQueryRewriter()

	tests := []struct {
		in   string
		want string
	}{
		{"这个药啥子时候吃", "这个药什么时候吃"},
		{"高血压咋样预防好", "高血压怎么样预防好"},
		{"头痛咋办才好啊", "头痛怎么办才好啊"},
		{"最近木有食欲了", "最近没有食欲了"},
		{"这是啥病的症状", "这是什么病的症状"},
	}
	for _, tt := range tests {
		got := r.Rewrite(tt.in)
		if !got.Changed {
			t.Errorf("输入 %q 应被重写", tt.in)
			continue
		}
		if got.Rewritten != tt.want {
			t.Errorf("Rewrite(%q) = %q, 期望 %q", tt.in, got.Rewritten, tt.want)
		}
		if !strings.Contains(got.Reason, "错别字纠正") {
			t.Errorf("输入 %q 的重写原因 = %q, 期望包含错别字纠正", tt.in, got.Reason)
		}
	}
}

func TestRewriteMixedIntent(t *testing.T) {
	r := NewQueryRewriter()

	tests := []struct {
		in   string
		want string
	}{
		{"头痛挂什么科", "我头痛，请问应该挂什么科？"},
		{"头疼挂哪个科", "我头痛，请问应该挂什么科？"},
		{"发烧挂什么科", "我发热，请问应该挂什么科？"},
		{"肚子痛看什么科", "我腹痛，请问应该挂什么科？"},
	}
	for _, tt := range tests {
		got := r.Rewrite(tt.in)
		if got.Rewritten != tt.want {
			t.Errorf("Rewrite(%q) = %q, 期望 %q", tt.in, got.Rewritten, tt.want)
		}
	}
}

func TestRewriteTypoThenMixedIntent(t *testing.T) {
	r := NewQueryRewriter()

	// 别字纠正后才暴露出混合问法
	got := r.Rewrite("头痛挂啥科")
	if got.Rewritten != "我头痛，请问应该挂什么科？" {
		t.Errorf("Rewritten = %q", got.Rewritten)
	}
	if !strings.Contains(got.Reason, "错别字纠正") || !strings.Contains(got.Reason, "混合意图明确化") {
		t.Errorf("Reason = %q, 期望同时包含两条原因", got.Reason)
	}
}

func TestRewriteShortExpansion(t *testing.T) {
	r := NewQueryRewriter()

	tests := []struct {
		in   string
		want string
	}{
		{"头痛", "我头痛，请问应该怎么办？"},
		{"发烧", "我发烧，请问应该怎么办？"},
		{"内科", "我想挂内科，请问看什么病？"},
		{"阿莫西林", "请问阿莫西林怎么吃？有什么注意事项？"},
	}
	for _, tt := range tests {
		got := r.Rewrite(tt.in)
		if got.Rewritten != tt.want {
			t.Errorf("Rewrite(%q) = %q, 期望 %q", tt.in, got.Rewritten, tt.want)
		}
		if got.Reason != "短输入补全" {
			t.Errorf("Reason = %q, 期望 短输入补全", got.Reason)
		}
	}
}

func TestRewriteUnchanged(t *testing.T) {
	r := NewQueryRewriter()

	inputs := []string{
		"我最近头痛头晕，已经3天了",
		"你好",
		"三天了", // 上下文追问交给分类器，不做猜测式补全
		"谢谢",
		"",
		"  头痛好几天了  ",
	}
	for _, in := range inputs {
		got := r.Rewrite(in)
		if got.Changed {
			t.Errorf("输入 %q 不应被重写, 实际 %q (%s)", in, got.Rewritten, got.Reason)
		}
		if got.Rewritten != in {
			t.Errorf("未重写时应原样返回: %q -> %q", in, got.Rewritten)
		}
	}
}
