// Package rag provides history-aware retrieval and answer synthesis.
package rag

// answerPrompt is the system instruction for answer synthesis. The
// {context} placeholder is replaced with the assembled context before the
// message is sent.
const answerPrompt = `You are a helpful AI assistant answering end-user questions about the indexed documents. Use the following context to answer the question at the end.
If you don't know the answer, just say you don't know. Don't try to make up an answer.
Context: {context}
After answering, include a section called "Source" listing the documents used.`

// contextualizePrompt instructs the completion service to rewrite a
// follow-up question into a standalone one, keeping entity mentions from
// the history verbatim.
const contextualizePrompt = `Given a chat history and the latest user question, which might reference context in the chat history, formulate a standalone question that includes any specific facts or entity mentions from the history (e.g. issue IDs, instrument names, codes). Keep entity names and IDs verbatim. Do NOT answer the question, just return the reformulated standalone question. If no reformulation is needed, return the original question.`

// historyReminder is appended after the history turns on the chain path so
// the model does not ignore them.
const historyReminder = `IMPORTANT: Use the conversation history above when answering.`
