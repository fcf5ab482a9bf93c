package summarize

import (
	"fmt"

	"ytbrief/models"
)

// Style instructions per output format.
var formatInstructions = map[models.SummaryFormat]string{
	models.FormatBulletPoints: "Summarize the transcript in clear, concise bullet points. " +
		"Focus on the main topics, key insights, and important takeaways. " +
		"Include timestamps only if they are explicitly present in the text.",
	models.FormatKeyInsights: "Extract the most important insights, lessons, and actionable information. " +
		"Present 8-12 key insights in a structured format with clear headings; " +
		"support each with a brief quote or paraphrase from the text.",
	models.FormatDetailed: "Write a comprehensive, sectioned summary with subheads and short paragraphs. " +
		"Cover: the main topic and purpose, key points discussed, important details and examples, " +
		"and conclusions or takeaways.",
	models.FormatActionableGuide: "Transform the transcript into a practical, actionable guide with numbered steps. " +
		"Focus on step-by-step instructions, specific actions the viewer can take, " +
		"tools or resources mentioned, and advice that can be implemented immediately.",
}

func instructionFor(format models.SummaryFormat) string {
	if instr, ok := formatInstructions[format]; ok {
		return instr
	}
	return formatInstructions[models.FormatBulletPoints]
}

func directPrompt(format models.SummaryFormat, text string) string {
	return fmt.Sprintf(
		"%s\nOnly use facts present in the text.\n\nTranscript:\n'''\n%s\n'''",
		instructionFor(format), text)
}

func chunkPrompt(format models.SummaryFormat, index, total int, text string) string {
	return fmt.Sprintf(
		"You are summarizing chunk %d/%d of a longer transcript.\n\n"+
			"Transcript chunk:\n'''\n%s\n'''\n\n"+
			"Task: %s\nOnly use facts present in the text.",
		index+1, total, text, instructionFor(format))
}

func reducePrompt(format models.SummaryFormat, joined string) string {
	return fmt.Sprintf(
		"Merge, deduplicate, and tighten these partial summaries into one cohesive output.\n"+
			"Target format: %s\n\n%s\n\nReturn only the final summary.",
		instructionFor(format), joined)
}
