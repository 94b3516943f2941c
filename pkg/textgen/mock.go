package textgen

import "strings"

// MockResponse produces a deterministic stage-appropriate response, keyed on
// the prompt content. Used when the service is unreachable or no API key is
// configured, so the pipeline stays testable offline. Match order runs from
// the most distinctive prompts to the most generic.
func MockResponse(prompt string) string {
	p := strings.ToLower(prompt)

	switch {
	// The quality-gate prompt embeds every prior stage payload, including the
	// router's task_type, so it must be matched before the router case and
	// only on phrases its own template carries.
	case strings.Contains(p, "quality gate") || strings.Contains(p, "overall_score"):
		return `{
  "is_valid": true,
  "overall_score": 80.0,
  "issues": [],
  "recommendations": [],
  "needs_revision": false,
  "revision_agents": [],
  "detailed_scores": {"analysis_score": 80.0, "meta_score": 80.0, "content_score": 80.0, "consistency_score": 80.0}
}`
	case strings.Contains(p, "task router"):
		return `{
  "task_type": "link_analysis",
  "agents_sequence": [{"agent_name": "link_builder", "priority": 1, "required": true}, {"agent_name": "team_lead", "priority": 2, "required": true}],
  "parameters": {}
}`
	case strings.Contains(p, "disavow") || strings.Contains(p, "referring links") || strings.Contains(p, "link auditor"):
		return `{
  "analyzed_links": {"total_links": 10, "toxic_links": 0, "suspicious_links": 0, "good_links": 10, "link_details": []},
  "disavow_file": {"content": "# Disavow file\n# Example disavow content", "format": "text/plain", "links_count": 0},
  "report": {"summary": "Example analysis report", "anchor_statistics": {"top_anchors": [], "toxic_anchors_count": 0}, "recommendations": [], "statistics": {}}
}`
	case strings.Contains(p, "meta"):
		return `{
  "title": "Example Title For A Generated Page That Meets Minimum Length Rules",
  "description": "Example description that is long enough to satisfy the configured description length range for generated pages and audits.",
  "h1": "Example H1",
  "og_title": "Example OG Title",
  "og_description": "Example OG Description",
  "faq_snippets": ["Question 1?", "Question 2?", "Question 3?"]
}`
	case strings.Contains(p, "article") || strings.Contains(p, "content"):
		return `{
  "content": "# Example Content\n\nThis is example content that should be generated by AI.",
  "word_count": 500,
  "readability_score": 75.0,
  "internal_links": []
}`
	case strings.Contains(p, "language"):
		return `{
  "detected_language": "en",
  "language_confidence": 0.9,
  "language_reasoning": "Detected based on keywords"
}`
	case strings.Contains(p, "cluster") || strings.Contains(p, "keywords"):
		return `{
  "clusters": [{"cluster_id": 1, "cluster_name": "Main cluster", "main_keyword": "example", "keywords": ["example"], "semantic_score": 70.0, "search_intent": "commercial", "priority": "high"}],
  "semantic_map": {"total_keywords": 1, "total_clusters": 1, "average_cluster_size": 1.0, "keywords_coverage": 100.0},
  "recommendations": {"page_structure": [], "internal_linking": [], "content_topics": []}
}`
	default:
		return `{
  "is_valid": true,
  "overall_score": 80.0,
  "issues": [],
  "recommendations": [],
  "detailed_scores": {"analysis_score": 80.0, "meta_score": 80.0, "content_score": 80.0, "consistency_score": 80.0}
}`
	}
}
