package skill

import (
	"fmt"
	"strings"

	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"github.com/aitachi/medical-agent-sub000/internal/knowledge"
)

// Disclaimer 免责声明，附加在除问候外的所有成功响应之后
const Disclaimer = "> ⚠️ **免责声明**: 以上信息仅供参考，不能替代专业医疗诊断和治疗。如有不适请及时就医。"

// UrgentWarning 紧急情况提示
const UrgentWarning = `🚨 **紧急情况**: 如有以下情况请立即就医或拨打120：
> - 剧烈疼痛或突发严重症状
> - 呼吸困难、意识模糊
> - 持续高烧不退
> - 严重外伤或大出血`

// AddDisclaimer 追加免责声明，已含免责声明的响应原样返回
func AddDisclaimer(response string) string {
	if strings.Contains(response, "免责声明") || strings.Contains(strings.ToLower(response), "disclaimer") {
		return response
	}
	if !strings.HasSuffix(response, "---") {
		response += "\n\n---\n\n"
	}
	return response + Disclaimer
}

// AddEmergencyWarning 在正文前附加紧急警示横幅。
// 危急级别由调度层整体接管，这里服务于 urgent/attention 级的检测结果；
// 已含紧急标记的响应原样返回。
func AddEmergencyWarning(response string, em *emergency.Result) string {
	if em == nil || !em.Detected {
		return response
	}
	if strings.Contains(response, "紧急提醒") || strings.Contains(response, "紧急情况") ||
		strings.Contains(response, "健康警示") {
		return response
	}

	emoji := "⚠️"
	if em.Level == emergency.LevelAttention {
		emoji = "ℹ️"
	}
	banner := fmt.Sprintf("%s **健康警示**: %s%s", emoji, em.Description, em.SuggestedAction.Description)
	return banner + "\n\n---\n\n" + response
}

// FormatSymptom 渲染症状响应：描述、常见原因、危险信号、建议科室、自我护理
func FormatSymptom(symptom string, info knowledge.SymptomInfo, found bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## 关于【%s】\n\n", symptom)

	if found {
		fmt.Fprintf(&b, "**症状描述**: %s\n\n", info.Description)

		if len(info.CommonCauses) > 0 {
			b.WriteString("**常见原因**:\n")
			causes := info.CommonCauses
			if len(causes) > 5 {
				causes = causes[:5]
			}
			for _, cause := range causes {
				fmt.Fprintf(&b, "- %s\n", cause)
			}
			b.WriteString("\n")
		}

		if len(info.RedFlags) > 0 {
			b.WriteString("### ⚠️ 危险信号\n\n")
			b.WriteString("如有以下情况请立即就医：\n")
			for _, flag := range info.RedFlags {
				fmt.Fprintf(&b, "- %s\n", flag)
			}
			b.WriteString("\n")
		}

		department := info.Department
		if department == "" {
			department = "内科"
		}
		fmt.Fprintf(&b, "**建议科室**: %s\n\n", department)

		if len(info.SelfCare) > 0 {
			b.WriteString("**自我护理建议**:\n")
			for _, care := range info.SelfCare {
				fmt.Fprintf(&b, "- %s\n", care)
			}
			b.WriteString("\n")
		}

		tip := info.Tip
		if tip == "" {
			tip = "注意休息，保持良好的生活习惯"
		}
		fmt.Fprintf(&b, "💡 **小贴士**: %s\n\n", tip)
	} else {
		fmt.Fprintf(&b, "关于%s的相关信息，建议您咨询专业医生。\n\n", symptom)
		b.WriteString("### ⚠️ 注意\n\n")
		b.WriteString("- 如症状持续或加重，请及时就医\n")
		b.WriteString("- 注意休息，避免过度劳累\n")
	}

	b.WriteString("---\n\n")
	b.WriteString(Disclaimer)
	return b.String()
}

// FormatDrug 渲染药品响应：基本信息、用法用量、副作用、禁忌、注意事项、相互作用
func FormatDrug(name, queryType string, entry knowledge.DrugEntry, found bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## 💊 %s\n\n", name)

	if found {
		generic := entry.GenericName
		if generic == "" {
			generic = name
		}
		fmt.Fprintf(&b, "**通用名**: %s\n", generic)
		if entry.EnglishName != "" {
			fmt.Fprintf(&b, "**英文名**: %s\n", entry.EnglishName)
		}
		fmt.Fprintf(&b, "**分类**: %s\n\n", entry.Category)

		if queryType == "info" || queryType == "dosage" {
			b.WriteString("### 💡 用法用量\n\n")
			if entry.Dosage.Adult != "" {
				fmt.Fprintf(&b, "- **成人**: %s\n", entry.Dosage.Adult)
			}
			if entry.Dosage.Children != "" {
				fmt.Fprintf(&b, "- **儿童**: %s\n", entry.Dosage.Children)
			}
			b.WriteString("\n")
		}

		if len(entry.SideEffects) > 0 {
			b.WriteString("### 📝 可能的副作用\n\n")
			for _, se := range entry.SideEffects {
				fmt.Fprintf(&b, "- %s\n", se)
			}
			b.WriteString("\n")
		}

		if len(entry.Contraindications) > 0 {
			b.WriteString("### ⚠️ 禁忌症\n\n")
			for _, ct := range entry.Contraindications {
				fmt.Fprintf(&b, "- %s\n", ct)
			}
			b.WriteString("\n")
		}

		if entry.Warnings != "" {
			fmt.Fprintf(&b, "### ⚠️ 注意事项\n\n%s\n\n", entry.Warnings)
		}

		if len(entry.Interactions) > 0 {
			b.WriteString("### 💊 药物相互作用\n\n")
			for _, interaction := range entry.Interactions {
				fmt.Fprintf(&b, "- %s\n", interaction)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("暂无详细信息，请咨询医生或药师。\n\n")
	}

	b.WriteString("---\n\n")
	b.WriteString(Disclaimer)
	b.WriteString("\n\n> 💊 **用药提醒**: 请严格按医嘱或说明书使用，不要超量服用。")
	return b.String()
}

// FormatDepartment 科室推荐响应收尾：补分隔线并加免责声明
func FormatDepartment(content string) string {
	if !strings.HasSuffix(content, "---") {
		content += "\n\n---\n\n"
	}
	return content + Disclaimer
}

// FormatHealth 健康内容响应收尾
func FormatHealth(content string) string {
	if !strings.HasSuffix(content, "---") {
		content += "\n\n---\n\n"
	}
	return content + Disclaimer
}

// FormatDefault 默认响应：按需追加紧急或风险提示，再加免责声明
func FormatDefault(content string, hasRisk, urgent bool) string {
	if urgent {
		content += "\n\n---\n\n"
		content += UrgentWarning
	} else if hasRisk {
		content += "\n\n---\n\n"
		content += "> ⚠️ **注意**: 以上情况建议及时就医咨询。"
	}

	if !strings.HasSuffix(content, "---") {
		content += "\n\n---\n\n"
	}
	return content + Disclaimer
}
