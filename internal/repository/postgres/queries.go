package postgres

const (
	queryInsertEvent = `insert into pr_insights.events
    		(repository, pr_number, event_type, actor, occurred_at, attributes)
    		values ($1, $2, $3, $4, $5, $6)`

	queryListEvents = `select id, repository, pr_number, event_type, actor, occurred_at, attributes
    		from pr_insights.events`

	queryListRepositories = `select distinct repository from pr_insights.events order by repository`
)
