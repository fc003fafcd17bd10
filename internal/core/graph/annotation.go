package graph

// Comment is a note attached to a node id. The node is not required to
// exist, now or later: comments outlive the nodes they annotate.
type Comment struct {
	ID     string `json:"id" msgpack:"id"`
	NodeID string `json:"nodeId" msgpack:"nodeId"`
	Text   string `json:"text" msgpack:"text"`
}

// Collaborator is a participant record of the editing session. It grants
// nothing; names and emails are neither validated nor deduplicated.
type Collaborator struct {
	ID    string `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Email string `json:"email" msgpack:"email"`
}
