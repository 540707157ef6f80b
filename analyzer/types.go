package analyzer

// summaryPrompt is the single-pass concise-summary prompt; %s receives the
// chunks joined by blank lines.
const summaryPrompt = "Write a concise summary of the following:\n\n\n\"%s\"\n\n\nCONCISE SUMMARY:"

// insightsPrompt asks for the six-section tutor review; %s receives the
// full transcript.
const insightsPrompt = `You are an expert English language tutor analyzing a transcript from an English conversation lesson.

Transcript:
%s

Please provide a detailed analysis of the student's English language skills, including:

1. Grammar: Identify 3-5 grammar mistakes or areas for improvement with examples and corrections.
2. Vocabulary: Highlight limited vocabulary usage and suggest 3-5 alternative expressions or words.
3. Pronunciation: Note any pronunciation issues that might affect comprehension.
4. Fluency: Analyze hesitations, fillers, and overall speech flow.
5. Overall strengths: What aspects of English is the student good at?
6. Specific improvement suggestions: Provide 3 actionable recommendations.

Format your response in clear sections with examples from the transcript.
`

const chunkSeparator = "\n\n"
