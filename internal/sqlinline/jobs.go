package sqlinline

const QInsertJob = `--sql 690400e6-0dc8-4073-bcbd-eebb28dd4030
insert into jobs (id, template_id, asset_mappings, status, progress, metadata, created_at)
values ($1, $2, $3::jsonb, $4, 0, $5::jsonb, now());
`

const QSelectJob = `--sql 88bd1a9d-f70a-4da8-8aba-132162d6a8f0
select id, template_id, asset_mappings, status, progress,
       created_at, started_at, completed_at,
       output_video_url, output_video_public_url,
       error_code, error_message, error_at, metadata
from jobs
where id = $1;
`

const QListJobs = `--sql e0445979-cec1-4f7f-9a2e-bf5b7c0ebacf
select id, template_id, asset_mappings, status, progress,
       created_at, started_at, completed_at,
       output_video_url, output_video_public_url,
       error_code, error_message, error_at, metadata
from jobs
where ($1::text = '' or status = $1)
order by created_at desc
limit $2;
`

const QMarkJobRendering = `--sql aa67226e-cc13-4053-b34a-89e188ca4c6e
update jobs
set status = 'rendering', started_at = $2
where id = $1 and status = 'queued';
`

const QMarkJobCompleted = `--sql 0ac27f29-f478-4db1-94ef-cf6939311223
update jobs
set status = 'completed',
    progress = 100,
    output_video_url = $2,
    output_video_public_url = $3,
    completed_at = $4
where id = $1 and status = 'rendering';
`

const QMarkJobFailed = `--sql 286eb154-bf74-42ee-928a-77246aa0fe0a
update jobs
set status = 'failed',
    error_code = $3,
    error_message = $4,
    error_at = $5
where id = $1 and status = $2;
`

const QSetJobProgress = `--sql 11cd0abb-de4b-4968-90d1-6e3ce9c2fa82
update jobs
set progress = greatest(progress, $2)
where id = $1 and status = 'rendering';
`

const QMergeJobMetadata = `--sql 06d87a59-adef-4251-8176-7d3875578ec1
update jobs
set metadata = coalesce(metadata, '{}'::jsonb) || $2::jsonb
where id = $1;
`

const QJobStatusCounts = `--sql 1237269b-a6c6-4d85-ab26-d2f8cfe26799
select status, count(*)
from jobs
where created_at >= $1
group by status;
`

const QReapStaleJobs = `--sql d52ad600-2f7b-4bb0-b4d8-13a356b4803a
update jobs
set status = 'failed',
    error_code = $2,
    error_message = $3,
    error_at = now()
where status = 'rendering' and started_at < $1;
`
