package sqlinline

const QInsertTemplate = `--sql c8543169-20e2-446e-8e30-b291847cfb2c
insert into templates (id, name, version, composition_id, serve_url, slots, status, created_at)
values ($1, $2, $3, $4, $5, $6::jsonb, $7, now());
`

const QSelectTemplate = `--sql 16db11fb-bdc7-4da6-96fa-997c0e67c579
select id, name, version, composition_id, serve_url, slots, status, created_at
from templates
where id = $1;
`

const QListActiveTemplates = `--sql 3fd6bf43-8a8a-4724-a7a5-25c8a5509bbe
select id, name, version, composition_id, serve_url, slots, status, created_at
from templates
where status = 'active'
order by created_at desc;
`
