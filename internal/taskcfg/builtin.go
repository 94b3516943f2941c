package taskcfg

// Builtin returns the default stage definitions, mirroring the shipped
// agent_tasks files. Prompt wording is opaque template text; the pipeline
// only resolves its {placeholder} slots.
func Builtin() *Set {
	return &Set{Tasks: map[string]Task{
		"task_router": {
			Name:        "task_router",
			RequireJSON: true,
			PromptTemplate: "You are a task router for an SEO automation system.\n" +
				"Analyze the request and decide which task type it is and which agents must run, in order.\n\n" +
				"Request: {original_request}\n" +
				"URL: {url}\nDomain: {domain}\nTable file: {csv_file}\n\n" +
				"Return JSON: {\"task_type\": \"link_analysis|semantic_clustering|text_generation|meta_generation|combined\", " +
				"\"agents_sequence\": [{\"agent_name\": \"...\", \"priority\": 1, \"required\": true}], " +
				"\"parameters\": {}}",
			ValidationRules: []Rule{
				{Kind: KindMemberOf, Field: "task_type", Values: []string{
					"link_analysis", "semantic_clustering", "text_generation", "meta_generation", "combined"}},
				{Kind: KindNonEmpty, Field: "agents_sequence"},
			},
		},
		"language_detector": {
			Name:        "language_detector",
			RequireJSON: true,
			PromptTemplate: "Detect the language of the following request.\n\n" +
				"Query: {user_query}\nKeyword: {keyword}\nTopic: {topic}\nURL: {url}\n\n" +
				"Return JSON: {\"detected_language\": \"uk|ru|en\", \"language_confidence\": 0.0, \"language_reasoning\": \"...\"}",
			ValidationRules: []Rule{
				{Kind: KindMemberOf, Field: "detected_language", Values: []string{"uk", "ru", "en"}},
				{Kind: KindNumericRange, Field: "language_confidence", Min: 0, Max: 1},
				{Kind: KindNonEmpty, Field: "language_reasoning"},
			},
		},
		"link_builder": {
			Name:         "link_builder",
			RequireJSON:  true,
			MaxTokens:    2000,
			MinChunkRows: 50,
			PromptTemplate: "You are an SEO link auditor for {domain}.\n" +
				"Analyze the referring links below and classify every domain as disavow, attention or ok.\n" +
				"Minimum risk score for disavow: {min_risk_score}.\n\n" +
				"{csv_preview}\n\n" +
				"Return JSON: {\"analyzed_links\": {\"total_links\": 0, \"toxic_links\": 0, \"suspicious_links\": 0, " +
				"\"good_links\": 0, \"link_details\": []}, \"disavow_file\": {\"content\": \"\", \"format\": \"text/plain\", " +
				"\"links_count\": 0}, \"report\": {\"summary\": \"\", \"recommendations\": []}}",
			ValidationRules: []Rule{
				{Kind: KindPositive, Field: "analyzed_links.total_links"},
			},
		},
		"semantic_clusterer": {
			Name:        "semantic_clusterer",
			RequireJSON: true,
			PromptTemplate: "Cluster the following keywords by search intent for a {language} page.\n\n" +
				"Keywords: {keywords}\nTarget audience: {target_audience}\n\n" +
				"Return JSON: {\"clusters\": [{\"cluster_id\": 1, \"cluster_name\": \"...\", \"main_keyword\": \"...\", " +
				"\"keywords\": [], \"semantic_score\": 0, \"search_intent\": \"informational\", \"priority\": \"high\"}], " +
				"\"semantic_map\": {}, \"recommendations\": {}}",
			ValidationRules: []Rule{
				{Kind: KindNonEmpty, Field: "clusters"},
				{Kind: KindMemberOf, Field: "clusters.search_intent", Values: []string{
					"informational", "commercial", "transactional", "navigational"}},
			},
		},
		"text_generator": {
			Name:        "text_generator",
			RequireJSON: true,
			PromptTemplate: "Write an article in {language} about {topic} for {target_audience}.\n" +
				"Target length: {target_word_count} words. Context: {url_context}.\n\n" +
				"Return JSON: {\"content\": \"...\", \"word_count\": 0, \"readability_score\": 0, \"internal_links\": []}",
			ValidationRules: []Rule{
				{Kind: KindNonEmpty, Field: "content"},
				{Kind: KindNumericRange, Field: "word_count", Min: 300, Max: 100000},
			},
		},
		"meta_generator": {
			Name:        "meta_generator",
			RequireJSON: true,
			PromptTemplate: "Generate meta tags in {language} for the page {url} about {keyword}.\n\n" +
				"Return JSON: {\"title\": \"...\", \"description\": \"...\", \"h1\": \"...\", " +
				"\"og_title\": \"...\", \"og_description\": \"...\", \"faq_snippets\": []}",
			ValidationRules: []Rule{
				{Kind: KindListLength, Field: "title", Min: 60, Max: 150},
				{Kind: KindListLength, Field: "description", Min: 120, Max: 180},
			},
		},
		"team_lead": {
			Name:        "team_lead",
			RequireJSON: true,
			MaxTokens:   1500,
			PromptTemplate: "You are the quality gate of an SEO pipeline. Review the stage results for task {task_type}.\n\n" +
				"Original request: {original_request}\n" +
				"Stage results: {agent_results}\n\n" +
				"Return JSON: {\"is_valid\": true, \"overall_score\": 0, \"issues\": [], \"recommendations\": [], " +
				"\"needs_revision\": false, \"revision_agents\": [], \"detailed_scores\": {}}",
			ValidationRules: []Rule{
				{Kind: KindNumericRange, Field: "overall_score", Min: 0, Max: 100},
				{Kind: KindConsistency, Field: "is_valid", ScoreField: "overall_score", Threshold: 70, IssuesField: "issues"},
			},
		},
	}}
}
