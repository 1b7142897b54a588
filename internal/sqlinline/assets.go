package sqlinline

const QInsertAsset = `--sql 8dbadd80-a860-4940-ab79-32a0f23a5649
insert into assets (id, display_name, kind, storage_key, mime, bytes, width, height, source, country, created_at)
values ($1, $2, $3, $4, $5, $6::bigint, $7::int, $8::int, $9, $10, now());
`

const QListAssets = `--sql 4b5d5966-73b5-4473-a69c-a5e48cbe0ecb
select id, display_name, kind, storage_key, mime, bytes, width, height, source, country, created_at
from assets
order by created_at desc
limit $1::int offset $2::int;
`
